package responder

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/harborline/quartermast/internal/bus"
	"github.com/harborline/quartermast/internal/decision"
	"github.com/harborline/quartermast/internal/extraction"
	"github.com/harborline/quartermast/internal/thread"
	"github.com/harborline/quartermast/internal/validation"
)

type capturePublisher struct {
	subjects []string
	payloads [][]byte
}

func (p *capturePublisher) Publish(subject string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, raw)
	return nil
}

func (p *capturePublisher) lastEmail(t *testing.T) bus.OutboundEmail {
	t.Helper()
	if len(p.payloads) == 0 {
		t.Fatal("nothing published")
	}
	var out bus.OutboundEmail
	if err := json.Unmarshal(p.payloads[len(p.payloads)-1], &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestSend_ClarificationListsMissingFields(t *testing.T) {
	pub := &capturePublisher{}
	r := New(pub, nil, nil)
	th := thread.New("t1", time.Now())

	dec := decision.Decision{Action: decision.ActionSendClarificationRequest, NextState: decision.StateAwaitingClarification}
	v := validation.Result{MissingFields: []string{validation.MissingOriginPort, extraction.FieldVolume}}

	if err := r.Send(context.Background(), th, dec, v, "buyer@example.com"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	out := pub.lastEmail(t)
	if out.Kind != "clarification" || out.To != "buyer@example.com" {
		t.Errorf("outbound = %+v", out)
	}
	if !strings.Contains(out.Body, "which port in the origin country") {
		t.Errorf("body missing origin port ask:\n%s", out.Body)
	}
	if !strings.Contains(out.Body, "cargo volume") {
		t.Errorf("body missing volume ask:\n%s", out.Body)
	}
	if pub.subjects[0] != bus.SubjectOutboundEmail {
		t.Errorf("subject = %s", pub.subjects[0])
	}
}

func TestSend_ConfirmationSummarizesShipment(t *testing.T) {
	pub := &capturePublisher{}
	r := New(pub, nil, nil)
	th := thread.New("t1", time.Now())
	th.Cumulative.Set(extraction.CategoryShipment, extraction.FieldOrigin, "Shanghai, China")
	th.Cumulative.Set(extraction.CategoryShipment, extraction.FieldContainerType, "40HC")
	th.Cumulative.Set(extraction.CategoryTimeline, extraction.FieldShipmentDate, "2024-03-15")

	dec := decision.Decision{Action: decision.ActionSendConfirmationRequest}
	if err := r.Send(context.Background(), th, dec, validation.Result{IsComplete: true}, "buyer@example.com"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	out := pub.lastEmail(t)
	for _, want := range []string{"Shanghai, China", "40HC", "2024-03-15"} {
		if !strings.Contains(out.Body, want) {
			t.Errorf("summary missing %q:\n%s", want, out.Body)
		}
	}
}

func TestSend_EscalationProducesNoEmail(t *testing.T) {
	pub := &capturePublisher{}
	r := New(pub, nil, nil)
	th := thread.New("t1", time.Now())

	dec := decision.Decision{Action: decision.ActionEscalate, Escalate: true}
	if err := r.Send(context.Background(), th, dec, validation.Result{}, "buyer@example.com"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(pub.subjects) != 0 {
		t.Errorf("escalation published %v, want nothing", pub.subjects)
	}
}
