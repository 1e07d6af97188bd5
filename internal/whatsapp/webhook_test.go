package whatsapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEvent = `{
  "object": "whatsapp_business_account",
  "entry": [
    {
      "id": "1001",
      "changes": [
        {
          "field": "messages",
          "value": {
            "messaging_product": "whatsapp",
            "metadata": {"display_phone_number": "15550001111", "phone_number_id": "555"},
            "contacts": [{"profile": {"name": "Ada"}, "wa_id": "491700000001"}],
            "messages": [
              {"from": "491700000001", "id": "wamid.abc", "timestamp": "1700000000", "type": "text", "text": {"body": "hi"}}
            ]
          }
        }
      ]
    }
  ]
}`

func TestMessageUnitsFromProviderPayload(t *testing.T) {
	var event Event
	require.NoError(t, json.Unmarshal([]byte(sampleEvent), &event))

	units := event.MessageUnits()
	require.Len(t, units, 1)
	assert.Equal(t, MessageUnit{
		PhoneNumberID: "555",
		From:          "491700000001",
		WAMessageID:   "wamid.abc",
		Body:          "hi",
	}, units[0])
}

func TestMessageUnitsSkipsMalformed(t *testing.T) {
	event := Event{Entry: []Entry{{Changes: []Change{{
		Value: Value{
			Metadata: Metadata{PhoneNumberID: "555"},
			Messages: []InboundMessage{
				{From: "", ID: "wamid.1", Text: Text{Body: "no sender"}},
				{From: "+1", ID: "", Text: Text{Body: "no id"}},
				{From: "+1", ID: "wamid.2", Text: Text{}},
				{From: " +2 ", ID: " wamid.3 ", Text: Text{Body: " ok \n"}},
			},
		},
	}}}}}

	units := event.MessageUnits()
	require.Len(t, units, 1)
	assert.Equal(t, "+2", units[0].From)
	assert.Equal(t, "wamid.3", units[0].WAMessageID)
	assert.Equal(t, "ok", units[0].Body)
}

func TestMessageUnitsMissingRoutingKey(t *testing.T) {
	event := Event{Entry: []Entry{{Changes: []Change{{
		Value: Value{
			Messages: []InboundMessage{{From: "+1", ID: "wamid.1", Text: Text{Body: "hi"}}},
		},
	}}}}}
	assert.Empty(t, event.MessageUnits())
}

func TestMessageUnitsStatusCallback(t *testing.T) {
	// Status callbacks carry no messages array at all.
	var event Event
	require.NoError(t, json.Unmarshal([]byte(`{"entry":[{"changes":[{"value":{"metadata":{"phone_number_id":"555"},"statuses":[{"id":"wamid.x","status":"delivered"}]}}]}]}`), &event))
	assert.Empty(t, event.MessageUnits())
}

func TestMessageUnitsMultipleSiblings(t *testing.T) {
	event := Event{Entry: []Entry{
		{Changes: []Change{{Value: Value{
			Metadata: Metadata{PhoneNumberID: "555"},
			Messages: []InboundMessage{
				{From: "+1", ID: "wamid.1", Text: Text{Body: "one"}},
				{From: "+2", ID: "wamid.2", Text: Text{Body: "two"}},
			},
		}}}},
		{Changes: []Change{{Value: Value{
			Metadata: Metadata{PhoneNumberID: "777"},
			Messages: []InboundMessage{
				{From: "+3", ID: "wamid.3", Text: Text{Body: "three"}},
			},
		}}}},
	}}

	units := event.MessageUnits()
	require.Len(t, units, 3)
	assert.Equal(t, "555", units[0].PhoneNumberID)
	assert.Equal(t, "555", units[1].PhoneNumberID)
	assert.Equal(t, "777", units[2].PhoneNumberID)
}
