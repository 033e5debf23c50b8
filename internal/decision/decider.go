package decision

import (
	"fmt"

	"github.com/harborline/quartermast/internal/validation"
)

// State is the conversation state of a thread. The set is closed; anything
// read back from storage goes through ParseState.
type State string

const (
	StateNew                   State = "NEW"
	StateAwaitingClarification State = "AWAITING_CLARIFICATION"
	StateAwaitingConfirmation  State = "AWAITING_CONFIRMATION"
	StateConfirmed             State = "CONFIRMED"
	StateForwarderEngaged      State = "FORWARDER_ENGAGED"
	StateRatesCollected        State = "RATES_COLLECTED"
	StateEscalated             State = "ESCALATED"
	StateNonLogistics          State = "NON_LOGISTICS"
	StateClosed                State = "CLOSED"
)

var allStates = map[State]bool{
	StateNew: true, StateAwaitingClarification: true, StateAwaitingConfirmation: true,
	StateConfirmed: true, StateForwarderEngaged: true, StateRatesCollected: true,
	StateEscalated: true, StateNonLogistics: true, StateClosed: true,
}

// ParseState converts a stored string back into a State.
func ParseState(s string) (State, error) {
	st := State(s)
	if !allStates[st] {
		return "", fmt.Errorf("unknown conversation state %q", s)
	}
	return st, nil
}

// Action is the single workflow action chosen for an inbound message.
type Action string

const (
	ActionEscalate                 Action = "ESCALATE"
	ActionAcknowledgeNonLogistics  Action = "ACKNOWLEDGE_NON_LOGISTICS"
	ActionProcessForwarderRate     Action = "PROCESS_FORWARDER_RATE"
	ActionAssignForwarders         Action = "ACKNOWLEDGE_CONFIRMATION_AND_ASSIGN_FORWARDERS"
	ActionSendConfirmationRequest  Action = "SEND_CONFIRMATION_REQUEST"
	ActionSendClarificationRequest Action = "SEND_CLARIFICATION_REQUEST"
	ActionSendStatusUpdate         Action = "SEND_STATUS_UPDATE"
)

// Tag is the classifier's email type label.
type Tag string

const (
	TagQuoteRequest      Tag = "quote_request"
	TagClarification     Tag = "clarification_response"
	TagConfirmation      Tag = "confirmation"
	TagForwarderResponse Tag = "forwarder_response"
	TagNonLogistics      Tag = "non_logistics"
	TagUnknown           Tag = "unknown"
)

// Input is everything the decider is allowed to see. External failures never
// reach it as errors; the orchestrator encodes them as confidence 0.
type Input struct {
	State                 State
	Tag                   Tag
	Confidence            float64
	IsConfirmation        bool
	Validation            validation.Result
	ClarificationAttempts int
}

// Decision is the single action chosen for a message, with the state the
// thread moves to and a trace of why.
type Decision struct {
	Action    Action
	NextState State
	Reasoning string
	Escalate  bool
}

// Decider turns a decision input into exactly one action. It is a pure
// function of its input plus two fixed thresholds.
type Decider struct {
	ConfidenceThreshold float64
	MaxClarifications   int
}

const (
	DefaultConfidenceThreshold = 0.5
	DefaultMaxClarifications   = 3
)

func NewDecider(confidenceThreshold float64, maxClarifications int) *Decider {
	if confidenceThreshold <= 0 {
		confidenceThreshold = DefaultConfidenceThreshold
	}
	if maxClarifications <= 0 {
		maxClarifications = DefaultMaxClarifications
	}
	return &Decider{ConfidenceThreshold: confidenceThreshold, MaxClarifications: maxClarifications}
}

// Decide applies the decision rules in order; the first match wins.
func (d *Decider) Decide(in Input) Decision {
	// 1. Low confidence dominates everything else.
	if in.Confidence < d.ConfidenceThreshold {
		return Decision{
			Action:    ActionEscalate,
			NextState: StateEscalated,
			Escalate:  true,
			Reasoning: fmt.Sprintf("classification confidence %.2f below threshold %.2f", in.Confidence, d.ConfidenceThreshold),
		}
	}

	// 2. Clarification loop guard.
	if in.ClarificationAttempts > d.MaxClarifications && !in.Validation.IsComplete {
		return Decision{
			Action:    ActionEscalate,
			NextState: StateEscalated,
			Escalate:  true,
			Reasoning: fmt.Sprintf("%d clarification attempts exceeded cap %d with data still incomplete", in.ClarificationAttempts, d.MaxClarifications),
		}
	}

	// 3. Non-logistics mail is acknowledged and parked.
	if in.Tag == TagNonLogistics {
		return Decision{
			Action:    ActionAcknowledgeNonLogistics,
			NextState: StateNonLogistics,
			Reasoning: "message classified as non-logistics",
		}
	}

	// 4. Forwarder replies bypass the clarification/confirmation flow.
	if in.Tag == TagForwarderResponse {
		return Decision{
			Action:    ActionProcessForwarderRate,
			NextState: StateRatesCollected,
			Reasoning: "forwarder rate response received",
		}
	}

	// 5. Explicit customer confirmation, when a confirmation is pending.
	if in.IsConfirmation {
		switch in.State {
		case StateAwaitingConfirmation, StateConfirmed:
			return Decision{
				Action:    ActionAssignForwarders,
				NextState: StateForwarderEngaged,
				Reasoning: "customer confirmed booking details",
			}
		case StateForwarderEngaged, StateRatesCollected:
			// Re-confirmation of already-confirmed data is a no-op: report
			// status, do not engage forwarders a second time.
			return Decision{
				Action:    ActionSendStatusUpdate,
				NextState: in.State,
				Reasoning: "redundant confirmation on an already-engaged thread",
			}
		}
		// A confirmation signal in any other state is treated as a normal
		// data-bearing message and falls through to the rules below.
	}

	// 6. Complete data: ask the customer to confirm it.
	if in.Validation.IsComplete {
		return Decision{
			Action:    ActionSendConfirmationRequest,
			NextState: StateAwaitingConfirmation,
			Reasoning: "shipment data complete, requesting customer confirmation",
		}
	}

	// 7. Otherwise ask for what is still missing.
	return Decision{
		Action:    ActionSendClarificationRequest,
		NextState: StateAwaitingClarification,
		Reasoning: fmt.Sprintf("shipment data incomplete, missing %v", in.Validation.MissingFields),
	}
}
