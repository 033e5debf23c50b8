package responder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/harborline/quartermast/internal/anthropic"
	"github.com/harborline/quartermast/internal/bus"
	"github.com/harborline/quartermast/internal/decision"
	"github.com/harborline/quartermast/internal/extraction"
	"github.com/harborline/quartermast/internal/thread"
	"github.com/harborline/quartermast/internal/validation"
)

// Publisher is the outbound event seam, satisfied by *bus.Client.
type Publisher interface {
	Publish(subject string, data any) error
}

// Responder turns an action decision into an outbound email event. Every
// reply starts from a deterministic template; when an LLM client is
// configured the body is polished into natural prose, and any drafting
// failure falls back to the plain template. Sending never blocks the
// pipeline: the orchestrator logs and continues on error.
type Responder struct {
	publisher Publisher
	llm       *anthropic.Client
	logger    *slog.Logger
}

func New(publisher Publisher, llm *anthropic.Client, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{publisher: publisher, llm: llm, logger: logger}
}

// Send drafts and publishes the customer-facing reply for a decision.
// Escalations produce no customer email: the thread is in human hands.
func (r *Responder) Send(ctx context.Context, t *thread.Thread, dec decision.Decision, v validation.Result, to string) error {
	kind, subject, body := r.draft(t, dec, v)
	if kind == "" {
		return nil
	}

	if r.llm != nil {
		polished, err := r.polish(ctx, body)
		if err != nil {
			r.logger.Warn("llm drafting failed, using template", "thread_id", t.ThreadID, "error", err)
		} else {
			body = polished
		}
	}

	out := bus.OutboundEmail{
		MessageID: uuid.NewString(),
		ThreadID:  t.ThreadID,
		To:        to,
		Subject:   subject,
		Body:      body,
		Kind:      kind,
	}
	if err := r.publisher.Publish(bus.SubjectOutboundEmail, out); err != nil {
		return fmt.Errorf("publish outbound email: %w", err)
	}
	r.logger.Info("reply queued", "thread_id", t.ThreadID, "kind", kind, "to", to)
	return nil
}

func (r *Responder) draft(t *thread.Thread, dec decision.Decision, v validation.Result) (kind, subject, body string) {
	switch dec.Action {
	case decision.ActionSendClarificationRequest:
		return "clarification", "Re: your freight quote request",
			"Thanks for the details so far. To prepare your quote we still need:\n" +
				bulletList(v.MissingFields) +
				"\nCould you send these over in your reply?"
	case decision.ActionSendConfirmationRequest:
		return "confirmation", "Please confirm your shipment details",
			"We have everything we need. Please confirm the following so we can request rates:\n" +
				summarize(t.Cumulative) +
				"\nReply with a quick confirmation and we will take it from there."
	case decision.ActionAssignForwarders:
		return "acknowledgment", "Booking confirmed, requesting rates",
			"Thanks for confirming. We are now requesting rates from our partner forwarders and will come back with options shortly."
	case decision.ActionSendStatusUpdate:
		return "status", "Status of your freight quote request",
			"Your booking is already confirmed and rate requests are out with our forwarders. We will send quotes as soon as they arrive."
	case decision.ActionAcknowledgeNonLogistics:
		return "acknowledgment", "Re: your message",
			"Thanks for reaching out. This desk handles freight quote requests; we have routed your message to the right team."
	case decision.ActionProcessForwarderRate:
		return "acknowledgment", "Rate received, thank you",
			"Thanks, we have recorded your rate and will revert if the customer proceeds."
	}
	return "", "", ""
}

func (r *Responder) polish(ctx context.Context, draft string) (string, error) {
	prompt := "Rewrite the following email body as short, polite business prose. Keep every fact and every requested field, add nothing:\n\n" + draft
	return r.llm.Complete(ctx, "You draft concise logistics emails.", []anthropic.Message{{Role: "user", Content: prompt}}, 1024)
}

// fieldLabels maps missing-field tokens to customer-facing wording.
var fieldLabels = map[string]string{
	extraction.FieldOrigin:             "origin port or city",
	extraction.FieldDestination:        "destination port or city",
	validation.MissingOriginPort:       "which port in the origin country",
	validation.MissingDestinationPort:  "which port in the destination country",
	extraction.FieldShipmentType:       "shipment type (FCL or LCL)",
	extraction.FieldContainerType:      "container type (e.g. 20GP, 40HC)",
	extraction.FieldWeight:             "cargo weight",
	extraction.FieldVolume:             "cargo volume (CBM)",
	validation.MissingWeightOrVolume:   "cargo weight or volume",
	extraction.FieldShipmentDate:       "target shipment date",
	extraction.FieldCommodity:          "commodity description",
	validation.MissingContactEmail:     "a contact email address",
	validation.MissingHazardousDetails: "dangerous goods details (UN number, MSDS)",
	extraction.FieldTempControl:        "temperature control requirements",
}

func bulletList(missing []string) string {
	var b strings.Builder
	for _, f := range missing {
		label, ok := fieldLabels[f]
		if !ok {
			label = strings.ReplaceAll(f, "_", " ")
		}
		fmt.Fprintf(&b, "  - %s\n", label)
	}
	return b.String()
}

func summarize(c extraction.Cumulative) string {
	fields := c.Categories[extraction.CategoryShipment]
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  - %s: %s\n", strings.ReplaceAll(k, "_", " "), fields[k])
	}
	if date := c.Get(extraction.CategoryTimeline, extraction.FieldShipmentDate); date != "" {
		fmt.Fprintf(&b, "  - shipment date: %s\n", date)
	}
	return b.String()
}
