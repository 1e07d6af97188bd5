package whatsapp

import "strings"

// Event is the webhook payload shape, limited to the fields this service
// consumes. Everything else Meta sends is ignored by json decoding.
type Event struct {
	Entry []Entry `json:"entry"`
}

type Entry struct {
	Changes []Change `json:"changes"`
}

type Change struct {
	Value Value `json:"value"`
}

type Value struct {
	Metadata Metadata         `json:"metadata"`
	Messages []InboundMessage `json:"messages"`
}

type Metadata struct {
	PhoneNumberID string `json:"phone_number_id"`
}

type InboundMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Text Text   `json:"text"`
}

type Text struct {
	Body string `json:"body"`
}

// MessageUnit is one independently processed inbound message: the routing
// key of the receiving business number plus the sender, provider message id
// and text.
type MessageUnit struct {
	PhoneNumberID string
	From          string
	WAMessageID   string
	Body          string
}

// MessageUnits flattens the entry/changes/messages nesting into units and
// drops malformed ones (missing routing key, sender, id or body). A status
// callback, for example, has no messages array and yields nothing.
func (e Event) MessageUnits() []MessageUnit {
	var units []MessageUnit
	for _, entry := range e.Entry {
		for _, change := range entry.Changes {
			phoneNumberID := strings.TrimSpace(change.Value.Metadata.PhoneNumberID)
			for _, msg := range change.Value.Messages {
				unit := MessageUnit{
					PhoneNumberID: phoneNumberID,
					From:          strings.TrimSpace(msg.From),
					WAMessageID:   strings.TrimSpace(msg.ID),
					Body:          strings.TrimSpace(msg.Text.Body),
				}
				if unit.PhoneNumberID == "" || unit.From == "" || unit.WAMessageID == "" || unit.Body == "" {
					continue
				}
				units = append(units, unit)
			}
		}
	}
	return units
}
