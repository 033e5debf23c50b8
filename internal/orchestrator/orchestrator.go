package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harborline/quartermast/internal/bus"
	"github.com/harborline/quartermast/internal/classifier"
	"github.com/harborline/quartermast/internal/decision"
	"github.com/harborline/quartermast/internal/extraction"
	"github.com/harborline/quartermast/internal/forwarder"
	"github.com/harborline/quartermast/internal/ports"
	"github.com/harborline/quartermast/internal/thread"
	"github.com/harborline/quartermast/internal/validation"
)

// Analyzer is the classification + extraction seam, satisfied by
// *classifier.Classifier.
type Analyzer interface {
	Analyze(ctx context.Context, sender, subject, body string) (*classifier.Result, error)
}

// ReplySender dispatches the customer-facing reply for a decision, satisfied
// by *responder.Responder.
type ReplySender interface {
	Send(ctx context.Context, t *thread.Thread, dec decision.Decision, v validation.Result, to string) error
}

// Publisher is the outbound event seam, satisfied by *bus.Client.
type Publisher interface {
	Publish(subject string, data any) error
}

// Orchestrator runs the per-message pipeline: dedup, classify, merge,
// validate, decide, dispatch, persist. Messages for the same thread are
// serialized on a per-thread lock; different threads proceed concurrently.
type Orchestrator struct {
	store     thread.Store
	analyzer  Analyzer
	validator *validation.Engine
	decider   *decision.Decider
	responder ReplySender
	directory *forwarder.Directory
	resolver  ports.Resolver
	publisher Publisher
	logger    *slog.Logger

	analyzeTimeout time.Duration
	now            func() time.Time

	locks sync.Map // thread id -> *sync.Mutex
}

func New(store thread.Store, analyzer Analyzer, validator *validation.Engine, decider *decision.Decider,
	responder ReplySender, directory *forwarder.Directory, resolver ports.Resolver,
	publisher Publisher, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:          store,
		analyzer:       analyzer,
		validator:      validator,
		decider:        decider,
		responder:      responder,
		directory:      directory,
		resolver:       resolver,
		publisher:      publisher,
		logger:         logger,
		analyzeTimeout: 60 * time.Second,
		now:            time.Now,
	}
}

// HandleInboundEmail is the NATS handler for quartermast.email.inbound.
func (o *Orchestrator) HandleInboundEmail(subject string, data []byte) {
	var evt bus.InboundEmail
	if err := json.Unmarshal(data, &evt); err != nil {
		o.logger.Error("failed to parse inbound email event", "error", err)
		return
	}
	if err := o.HandleInbound(context.Background(), evt); err != nil {
		o.logger.Error("inbound email processing failed",
			"thread_id", evt.ThreadID, "message_id", evt.MessageID, "error", err)
	}
}

// HandleInbound processes one inbound email end to end. It returns an error
// only when the final persist fails; the broker redelivers and the message id
// dedup makes the replay a no-op once the write has landed.
func (o *Orchestrator) HandleInbound(ctx context.Context, evt bus.InboundEmail) error {
	if evt.ThreadID == "" || evt.MessageID == "" {
		return fmt.Errorf("inbound email missing thread_id or message_id")
	}

	mu := o.lock(evt.ThreadID)
	mu.Lock()
	defer mu.Unlock()

	now := o.now()

	t, err := o.store.Get(ctx, evt.ThreadID)
	switch {
	case errors.Is(err, thread.ErrNotFound):
		t = thread.New(evt.ThreadID, now)
	case err != nil:
		return fmt.Errorf("load thread: %w", err)
	}

	for _, m := range t.Messages {
		if m.MessageID == evt.MessageID {
			o.logger.Info("duplicate message ignored", "thread_id", evt.ThreadID, "message_id", evt.MessageID)
			return nil
		}
	}

	result, analyzeErr := o.analyze(ctx, evt)

	merged := extraction.Merge(t.Cumulative, result.Extraction, o.logger)
	if !merged.Has(extraction.CategoryContact, extraction.FieldContactEmail) && evt.From != "" {
		// The envelope sender is always a usable reply address.
		merged.Set(extraction.CategoryContact, extraction.FieldContactEmail, evt.From)
	}

	v := o.validator.Validate(merged, t.Confirmed())

	dec := o.decider.Decide(decision.Input{
		State:                 t.ConversationState,
		Tag:                   result.Classification.Tag(),
		Confidence:            result.Classification.Confidence,
		IsConfirmation:        result.Classification.IsConfirmation,
		Validation:            v,
		ClarificationAttempts: t.ClarificationAttempts,
	})

	o.logger.Info("message decided",
		"thread_id", evt.ThreadID,
		"message_id", evt.MessageID,
		"action", string(dec.Action),
		"state", string(t.ConversationState),
		"next_state", string(dec.NextState),
		"complete", v.IsComplete,
		"reasoning", dec.Reasoning,
	)

	t.Cumulative = merged
	t.ConversationState = dec.NextState
	t.UpdatedAt = now

	switch dec.Action {
	case decision.ActionSendClarificationRequest:
		t.ClarificationAttempts++
	case decision.ActionAssignForwarders:
		o.assignForwarders(t)
	case decision.ActionProcessForwarderRate:
		o.recordForwarderRate(t, evt.From)
	}

	if dec.Escalate {
		reason := dec.Reasoning
		if analyzeErr != nil {
			reason = fmt.Sprintf("classification failed: %v", analyzeErr)
		}
		t.EscalationReason = reason
		if o.publisher != nil {
			if err := o.publisher.Publish(bus.SubjectEscalation, bus.Escalation{
				ThreadID:  t.ThreadID,
				MessageID: evt.MessageID,
				Reason:    reason,
				RaisedAt:  now,
			}); err != nil {
				o.logger.Error("failed to publish escalation", "thread_id", t.ThreadID, "error", err)
			}
		}
	}

	// Replies are best effort; a drafting or transport failure never holds
	// up the state transition.
	if o.responder != nil {
		if err := o.responder.Send(ctx, t, dec, v, evt.From); err != nil {
			o.logger.Error("reply dispatch failed", "thread_id", t.ThreadID, "error", err)
		}
	}

	sentAt := evt.ReceivedAt
	if sentAt.IsZero() {
		sentAt = now
	}
	msg := thread.Message{
		MessageID:            evt.MessageID,
		Sender:               evt.From,
		SentAt:               sentAt,
		Subject:              evt.Subject,
		Body:                 evt.Body,
		ExtractionSnapshot:   result.Extraction,
		ClassifierConfidence: result.Classification.Confidence,
	}
	if err := o.store.SaveWithMessage(ctx, t, msg); err != nil {
		if errors.Is(err, thread.ErrDuplicateMessage) {
			o.logger.Info("duplicate message ignored at persist", "thread_id", t.ThreadID, "message_id", evt.MessageID)
			return nil
		}
		return fmt.Errorf("persist thread: %w", err)
	}
	return nil
}

// analyze runs the classifier under a timeout. Any failure comes back as a
// zero-confidence result so the decider escalates instead of guessing.
func (o *Orchestrator) analyze(ctx context.Context, evt bus.InboundEmail) (*classifier.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.analyzeTimeout)
	defer cancel()

	result, err := o.analyzer.Analyze(ctx, evt.From, evt.Subject, evt.Body)
	if err != nil {
		o.logger.Error("classification failed", "thread_id", evt.ThreadID, "message_id", evt.MessageID, "error", err)
		return &classifier.Result{Extraction: extraction.Partial{}}, err
	}
	if result.Extraction == nil {
		result.Extraction = extraction.Partial{}
	}
	return result, nil
}

// assignForwarders picks forwarders for the thread's lane and publishes one
// rate request per assignment.
func (o *Orchestrator) assignForwarders(t *thread.Thread) {
	originCountry, destCountry := o.laneCountries(t.Cumulative)
	lane := forwarder.Lane(originCountry, destCountry)

	if o.directory == nil {
		o.logger.Warn("no forwarder directory configured", "thread_id", t.ThreadID, "lane", lane)
		return
	}
	assigned := o.directory.Assign(originCountry, destCountry)
	if len(assigned) == 0 {
		o.logger.Warn("no forwarders available for lane", "thread_id", t.ThreadID, "lane", lane)
		return
	}

	summary := shipmentSummary(t.Cumulative)
	for _, f := range assigned {
		if o.publisher == nil {
			break
		}
		if err := o.publisher.Publish(bus.SubjectRateRequest, bus.RateRequest{
			ThreadID:       t.ThreadID,
			ForwarderName:  f.Name,
			ForwarderEmail: f.Email,
			Lane:           lane,
			Summary:        summary,
		}); err != nil {
			o.logger.Error("failed to publish rate request",
				"thread_id", t.ThreadID, "forwarder", f.Email, "error", err)
		}
	}
	o.logger.Info("rate requests sent", "thread_id", t.ThreadID, "lane", lane, "forwarders", len(assigned))
}

// recordForwarderRate feeds a delivered quote back into the ranker so future
// assignments on this lane prefer forwarders that actually respond.
func (o *Orchestrator) recordForwarderRate(t *thread.Thread, forwarderEmail string) {
	if o.directory == nil || forwarderEmail == "" {
		return
	}
	originCountry, destCountry := o.laneCountries(t.Cumulative)
	lane := forwarder.Lane(originCountry, destCountry)
	o.directory.Ranker().RecordOutcome(forwarderEmail, lane, true)
	o.logger.Info("forwarder rate recorded", "thread_id", t.ThreadID, "forwarder", forwarderEmail, "lane", lane)
}

func (o *Orchestrator) laneCountries(c extraction.Cumulative) (origin, destination string) {
	if o.resolver == nil {
		return "", ""
	}
	origin = o.resolver.Resolve(c.Get(extraction.CategoryShipment, extraction.FieldOrigin)).Country
	destination = o.resolver.Resolve(c.Get(extraction.CategoryShipment, extraction.FieldDestination)).Country
	return origin, destination
}

func shipmentSummary(c extraction.Cumulative) string {
	shipType := extraction.ResolveShipmentType(c)
	return fmt.Sprintf("%s %s -> %s, cargo: %s",
		shipType,
		c.Get(extraction.CategoryShipment, extraction.FieldOrigin),
		c.Get(extraction.CategoryShipment, extraction.FieldDestination),
		c.Get(extraction.CategoryShipment, extraction.FieldCommodity),
	)
}

func (o *Orchestrator) lock(threadID string) *sync.Mutex {
	mu, _ := o.locks.LoadOrStore(threadID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
