package bus

import "time"

// InboundEmail is the delivery-side event for one received email. The
// message id is the dedup key: redelivery of the same id is a no-op.
type InboundEmail struct {
	MessageID  string    `json:"message_id"`
	ThreadID   string    `json:"thread_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// OutboundEmail is a drafted reply handed to the email transport.
type OutboundEmail struct {
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Kind      string `json:"kind"` // clarification | confirmation | status | acknowledgment
}

// RateRequest asks one assigned forwarder to quote a lane.
type RateRequest struct {
	ThreadID       string `json:"thread_id"`
	ForwarderName  string `json:"forwarder_name"`
	ForwarderEmail string `json:"forwarder_email"`
	Lane           string `json:"lane"`
	Summary        string `json:"summary"`
}

// Escalation hands a thread to a human operator.
type Escalation struct {
	ThreadID  string    `json:"thread_id"`
	MessageID string    `json:"message_id"`
	Reason    string    `json:"reason"`
	RaisedAt  time.Time `json:"raised_at"`
}
