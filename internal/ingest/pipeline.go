// Package ingest orchestrates inbound message processing: tenant
// resolution, idempotent admission, window construction, and the
// asynchronous generate/persist/deliver tail.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pingbackhq/pingbacker/internal/conversation"
	"github.com/pingbackhq/pingbacker/internal/message"
	"github.com/pingbackhq/pingbacker/internal/reply"
	"github.com/pingbackhq/pingbacker/internal/tenant"
	"github.com/pingbackhq/pingbacker/internal/whatsapp"
)

// TenantDirectory resolves routing keys to tenants.
type TenantDirectory interface {
	Resolve(ctx context.Context, phoneNumberID string) (tenant.Tenant, error)
}

// WindowBuilder derives the completion context for a tenant.
type WindowBuilder interface {
	Build(ctx context.Context, t tenant.Tenant) ([]conversation.Turn, error)
}

// Sender delivers generated text through the messaging provider.
type Sender interface {
	SendText(ctx context.Context, token, phoneNumberID, to, text string) error
}

// Pipeline processes webhook events unit by unit. Admission is synchronous
// with the webhook request; the reply tail runs on tracked goroutines so the
// provider gets its acknowledgment without waiting on the completion API.
type Pipeline struct {
	directory TenantDirectory
	store     message.Appender
	windows   WindowBuilder
	generator reply.Generator
	sender    Sender
	logger    *slog.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(
	log *slog.Logger,
	directory TenantDirectory,
	store message.Appender,
	windows WindowBuilder,
	generator reply.Generator,
	sender Sender,
) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		directory: directory,
		store:     store,
		windows:   windows,
		generator: generator,
		sender:    sender,
		logger:    log.With(slog.String("service", "ingest")),
	}
}

// ProcessEvent handles every message unit of one webhook delivery. Units are
// independent: a failing unit never aborts its siblings, and the caller has
// already acknowledged the delivery by the time replies go out.
func (p *Pipeline) ProcessEvent(ctx context.Context, event whatsapp.Event) {
	for _, unit := range event.MessageUnits() {
		p.processUnit(ctx, unit)
	}
}

func (p *Pipeline) processUnit(ctx context.Context, unit whatsapp.MessageUnit) {
	t, err := p.directory.Resolve(ctx, unit.PhoneNumberID)
	if err != nil {
		if errors.Is(err, tenant.ErrUnknownTenant) {
			// The provider forwards events for numbers that are not
			// provisioned here. Drop the unit, keep the siblings.
			p.logger.Warn("unit dropped: unknown tenant",
				slog.String("phone_number_id", unit.PhoneNumberID),
				slog.String("wa_message_id", unit.WAMessageID),
			)
			return
		}
		p.logger.Error("tenant resolution failed",
			slog.String("phone_number_id", unit.PhoneNumberID),
			slog.Any("error", err),
		)
		return
	}

	if _, err := p.store.Append(ctx, message.AppendInput{
		TenantID:    t.ID,
		Role:        message.RoleUser,
		Body:        unit.Body,
		WAMessageID: unit.WAMessageID,
	}); err != nil {
		if errors.Is(err, message.ErrDuplicateMessage) {
			// Retried webhook delivery. Already answered the first time.
			p.logger.Debug("unit dropped: duplicate delivery",
				slog.String("tenant_id", t.ID),
				slog.String("wa_message_id", unit.WAMessageID),
			)
			return
		}
		p.logger.Error("message admission failed",
			slog.String("tenant_id", t.ID),
			slog.String("wa_message_id", unit.WAMessageID),
			slog.Any("error", err),
		)
		return
	}

	window, err := p.windows.Build(ctx, t)
	if err != nil {
		p.logger.Error("window build failed",
			slog.String("tenant_id", t.ID),
			slog.String("wa_message_id", unit.WAMessageID),
			slog.Any("error", err),
		)
		return
	}

	p.dispatch(ctx, t, unit, window)
}

// dispatch runs the reply tail on a tracked goroutine. The webhook request
// context is detached so in-flight replies survive the HTTP response; Close
// is the join boundary.
func (p *Pipeline) dispatch(ctx context.Context, t tenant.Tenant, unit whatsapp.MessageUnit, window []conversation.Turn) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Warn("unit dropped: pipeline shutting down",
			slog.String("tenant_id", t.ID),
			slog.String("wa_message_id", unit.WAMessageID),
		)
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func(ctx context.Context) {
		defer p.wg.Done()
		p.respond(ctx, t, unit, window)
	}(context.WithoutCancel(ctx))
}

func (p *Pipeline) respond(ctx context.Context, t tenant.Tenant, unit whatsapp.MessageUnit, window []conversation.Turn) {
	text, err := p.generator.Generate(ctx, window)
	if err != nil {
		// The admitted user message stays; no partial assistant message
		// is written.
		p.logger.Error("reply generation failed",
			slog.String("tenant_id", t.ID),
			slog.String("wa_message_id", unit.WAMessageID),
			slog.Any("error", err),
		)
		return
	}

	// Persist before delivery: history must reflect what was said even
	// when transmission fails. Assistant messages carry no provider id and
	// are never subject to the duplicate check.
	if _, err := p.store.Append(ctx, message.AppendInput{
		TenantID: t.ID,
		Role:     message.RoleAssistant,
		Body:     text,
	}); err != nil {
		p.logger.Error("assistant persist failed",
			slog.String("tenant_id", t.ID),
			slog.String("wa_message_id", unit.WAMessageID),
			slog.Any("error", err),
		)
		return
	}

	if err := p.sender.SendText(ctx, t.Token, t.PhoneNumberID, unit.From, text); err != nil {
		// No automatic retry here; delivery retry policy lives outside
		// the core.
		p.logger.Error("delivery failed",
			slog.String("tenant_id", t.ID),
			slog.String("wa_message_id", unit.WAMessageID),
			slog.String("to", unit.From),
			slog.Any("error", err),
		)
		return
	}

	p.logger.Info("reply delivered",
		slog.String("tenant_id", t.ID),
		slog.String("wa_message_id", unit.WAMessageID),
		slog.String("to", unit.From),
	)
}

// Close rejects new dispatches and waits for in-flight reply tails, bounded
// by the context deadline. A process killed before Close can still lose a
// reply after admission; that at-most-once delivery gap is accepted and has
// no resumption mechanism.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pipeline drain: %w", ctx.Err())
	}
}
