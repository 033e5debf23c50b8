package thread

import (
	"context"
	"errors"
	"time"

	"github.com/harborline/quartermast/internal/decision"
	"github.com/harborline/quartermast/internal/extraction"
)

var (
	// ErrNotFound is returned when no thread exists for an id.
	ErrNotFound = errors.New("thread not found")
	// ErrDuplicateMessage is returned when a message id has already been
	// merged into its thread. The caller must treat the message as done.
	ErrDuplicateMessage = errors.New("message already processed")
)

// Message is one email in a thread's append-only history. The extraction
// snapshot is the raw partial the classifier produced for this message,
// kept for audit; the merged truth lives on the thread.
type Message struct {
	MessageID            string             `json:"message_id"`
	Sender               string             `json:"sender"`
	SentAt               time.Time          `json:"sent_at"`
	Subject              string             `json:"subject"`
	Body                 string             `json:"body"`
	ExtractionSnapshot   extraction.Partial `json:"extraction_snapshot,omitempty"`
	ClassifierConfidence float64            `json:"classifier_confidence"`
}

// Thread is the persisted conversation context for one thread id. It is
// owned exclusively by the orchestrator and is archived, never deleted.
type Thread struct {
	ThreadID              string                `json:"thread_id"`
	Cumulative            extraction.Cumulative `json:"cumulative_extraction"`
	ConversationState     decision.State        `json:"conversation_state"`
	ClarificationAttempts int                   `json:"clarification_attempts"`
	EscalationReason      string                `json:"escalation_reason,omitempty"`
	Messages              []Message             `json:"messages"`
	Archived              bool                  `json:"archived"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}

// New creates a fresh thread in the NEW state.
func New(threadID string, now time.Time) *Thread {
	return &Thread{
		ThreadID:          threadID,
		Cumulative:        extraction.NewCumulative(),
		ConversationState: decision.StateNew,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Confirmed reports whether the customer has explicitly confirmed the
// booking data at some point in this conversation.
func (t *Thread) Confirmed() bool {
	switch t.ConversationState {
	case decision.StateConfirmed, decision.StateForwarderEngaged, decision.StateRatesCollected:
		return true
	}
	return false
}

// Store persists threads keyed by thread id. SaveWithMessage must be atomic:
// the message append, the merged extraction and the state transition land
// together or not at all, and a replayed message id fails with
// ErrDuplicateMessage instead of merging twice.
type Store interface {
	Get(ctx context.Context, threadID string) (*Thread, error)
	SaveWithMessage(ctx context.Context, t *Thread, msg Message) error
	List(ctx context.Context) ([]*Thread, error)
	Archive(ctx context.Context, threadID string) error
}
