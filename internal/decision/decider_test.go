package decision

import (
	"testing"

	"github.com/harborline/quartermast/internal/validation"
)

func complete() validation.Result {
	return validation.Result{IsComplete: true}
}

func incomplete(missing ...string) validation.Result {
	return validation.Result{IsComplete: false, MissingFields: missing}
}

func TestDecide_RuleOrder(t *testing.T) {
	d := NewDecider(0.5, 3)

	tests := []struct {
		name       string
		in         Input
		wantAction Action
		wantState  State
		wantEsc    bool
	}{
		{
			name:       "low confidence dominates complete data",
			in:         Input{State: StateNew, Tag: TagQuoteRequest, Confidence: 0.3, Validation: complete()},
			wantAction: ActionEscalate,
			wantState:  StateEscalated,
			wantEsc:    true,
		},
		{
			name:       "zero confidence from failed classification",
			in:         Input{State: StateNew, Tag: TagUnknown, Confidence: 0, Validation: complete()},
			wantAction: ActionEscalate,
			wantState:  StateEscalated,
			wantEsc:    true,
		},
		{
			name: "clarification loop guard fires at high confidence",
			in: Input{
				State: StateAwaitingClarification, Tag: TagClarification, Confidence: 0.9,
				Validation: incomplete("volume"), ClarificationAttempts: 4,
			},
			wantAction: ActionEscalate,
			wantState:  StateEscalated,
			wantEsc:    true,
		},
		{
			name: "loop guard does not fire at the cap",
			in: Input{
				State: StateAwaitingClarification, Tag: TagClarification, Confidence: 0.9,
				Validation: incomplete("volume"), ClarificationAttempts: 3,
			},
			wantAction: ActionSendClarificationRequest,
			wantState:  StateAwaitingClarification,
		},
		{
			name:       "non logistics acknowledged",
			in:         Input{State: StateNew, Tag: TagNonLogistics, Confidence: 0.9, Validation: incomplete("origin")},
			wantAction: ActionAcknowledgeNonLogistics,
			wantState:  StateNonLogistics,
		},
		{
			name:       "forwarder response bypasses validation",
			in:         Input{State: StateForwarderEngaged, Tag: TagForwarderResponse, Confidence: 0.9, Validation: incomplete("origin", "destination")},
			wantAction: ActionProcessForwarderRate,
			wantState:  StateRatesCollected,
		},
		{
			name:       "confirmation assigns forwarders",
			in:         Input{State: StateAwaitingConfirmation, Tag: TagConfirmation, Confidence: 0.95, IsConfirmation: true, Validation: complete()},
			wantAction: ActionAssignForwarders,
			wantState:  StateForwarderEngaged,
		},
		{
			name:       "complete data requests confirmation",
			in:         Input{State: StateNew, Tag: TagQuoteRequest, Confidence: 0.9, Validation: complete()},
			wantAction: ActionSendConfirmationRequest,
			wantState:  StateAwaitingConfirmation,
		},
		{
			name:       "incomplete data requests clarification",
			in:         Input{State: StateNew, Tag: TagQuoteRequest, Confidence: 0.85, Validation: incomplete("origin_port", "destination_port")},
			wantAction: ActionSendClarificationRequest,
			wantState:  StateAwaitingClarification,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Decide(tt.in)
			if got.Action != tt.wantAction {
				t.Errorf("action = %v, want %v (%s)", got.Action, tt.wantAction, got.Reasoning)
			}
			if got.NextState != tt.wantState {
				t.Errorf("next state = %v, want %v", got.NextState, tt.wantState)
			}
			if got.Escalate != tt.wantEsc {
				t.Errorf("escalate = %v, want %v", got.Escalate, tt.wantEsc)
			}
			if got.Reasoning == "" {
				t.Error("decision carries no reasoning")
			}
		})
	}
}

func TestDecide_RedundantConfirmationIsNoOp(t *testing.T) {
	d := NewDecider(0.5, 3)

	for _, state := range []State{StateForwarderEngaged, StateRatesCollected} {
		t.Run(string(state), func(t *testing.T) {
			got := d.Decide(Input{
				State: state, Tag: TagConfirmation, Confidence: 0.95,
				IsConfirmation: true, Validation: complete(),
			})
			if got.Action != ActionSendStatusUpdate {
				t.Errorf("action = %v, want SEND_STATUS_UPDATE", got.Action)
			}
			if got.NextState != state {
				t.Errorf("next state = %v, want unchanged %v", got.NextState, state)
			}
		})
	}
}

func TestDecide_ConfirmationWithoutPendingRequestFallsThrough(t *testing.T) {
	d := NewDecider(0.5, 3)

	got := d.Decide(Input{
		State: StateNew, Tag: TagQuoteRequest, Confidence: 0.9,
		IsConfirmation: true, Validation: incomplete("container_type"),
	})
	if got.Action != ActionSendClarificationRequest {
		t.Errorf("action = %v, want SEND_CLARIFICATION_REQUEST", got.Action)
	}
}

func TestDecide_IsDeterministic(t *testing.T) {
	d := NewDecider(0.5, 3)
	in := Input{State: StateNew, Tag: TagQuoteRequest, Confidence: 0.8, Validation: incomplete("origin")}

	first := d.Decide(in)
	for i := 0; i < 10; i++ {
		if got := d.Decide(in); got != first {
			t.Fatalf("decision changed between identical calls: %+v vs %+v", got, first)
		}
	}
}

func TestNewDecider_Defaults(t *testing.T) {
	d := NewDecider(0, 0)
	if d.ConfidenceThreshold != DefaultConfidenceThreshold {
		t.Errorf("threshold = %v, want %v", d.ConfidenceThreshold, DefaultConfidenceThreshold)
	}
	if d.MaxClarifications != DefaultMaxClarifications {
		t.Errorf("max clarifications = %v, want %v", d.MaxClarifications, DefaultMaxClarifications)
	}
}

func TestParseState(t *testing.T) {
	if st, err := ParseState("AWAITING_CONFIRMATION"); err != nil || st != StateAwaitingConfirmation {
		t.Errorf("ParseState(AWAITING_CONFIRMATION) = %v, %v", st, err)
	}
	if _, err := ParseState("customer_confirmed"); err == nil {
		t.Error("ParseState accepted a free-form state string")
	}
}
