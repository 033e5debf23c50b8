package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/harborline/quartermast/internal/decision"
	"github.com/harborline/quartermast/internal/thread"
)

// Get loads a thread and its full message history.
func (s *Store) Get(ctx context.Context, threadID string) (*thread.Thread, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT thread_id, conversation_state, clarification_attempts, escalation_reason,
		       cumulative, archived, created_at, updated_at
		FROM threads
		WHERE thread_id = $1`,
		threadID,
	)

	var t thread.Thread
	var state string
	var cumulative []byte
	err := row.Scan(&t.ThreadID, &state, &t.ClarificationAttempts, &t.EscalationReason,
		&cumulative, &t.Archived, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("thread %s: %w", threadID, thread.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}

	t.ConversationState, err = decision.ParseState(state)
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	if err := json.Unmarshal(cumulative, &t.Cumulative); err != nil {
		return nil, fmt.Errorf("decode cumulative extraction: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT message_id, sender, sent_at, subject, body, extraction_snapshot, classifier_confidence
		FROM thread_messages
		WHERE thread_id = $1
		ORDER BY sent_at, message_id`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m thread.Message
		var snapshot []byte
		if err := rows.Scan(&m.MessageID, &m.Sender, &m.SentAt, &m.Subject, &m.Body, &snapshot, &m.ClassifierConfidence); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if len(snapshot) > 0 {
			if err := json.Unmarshal(snapshot, &m.ExtractionSnapshot); err != nil {
				return nil, fmt.Errorf("decode extraction snapshot: %w", err)
			}
		}
		t.Messages = append(t.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return &t, nil
}

// SaveWithMessage persists the updated thread state and appends the message
// in one transaction. A replayed message id aborts with ErrDuplicateMessage
// before any thread state changes, so a crash between decision and persist
// can never merge the same message twice.
func (s *Store) SaveWithMessage(ctx context.Context, t *thread.Thread, msg thread.Message) error {
	cumulative, err := json.Marshal(t.Cumulative)
	if err != nil {
		return fmt.Errorf("encode cumulative extraction: %w", err)
	}
	snapshot, err := json.Marshal(msg.ExtractionSnapshot)
	if err != nil {
		return fmt.Errorf("encode extraction snapshot: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO thread_messages (message_id, thread_id, sender, sent_at, subject, body, extraction_snapshot, classifier_confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (message_id) DO NOTHING`,
		msg.MessageID, t.ThreadID, msg.Sender, msg.SentAt, msg.Subject, msg.Body, snapshot, msg.ClassifierConfidence,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("message %s: %w", msg.MessageID, thread.ErrDuplicateMessage)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO threads (thread_id, conversation_state, clarification_attempts, escalation_reason, cumulative, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (thread_id) DO UPDATE SET
			conversation_state = EXCLUDED.conversation_state,
			clarification_attempts = EXCLUDED.clarification_attempts,
			escalation_reason = EXCLUDED.escalation_reason,
			cumulative = EXCLUDED.cumulative,
			archived = EXCLUDED.archived,
			updated_at = EXCLUDED.updated_at`,
		t.ThreadID, string(t.ConversationState), t.ClarificationAttempts, t.EscalationReason,
		cumulative, t.Archived, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert thread: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Archive closes a thread and marks it archived. The row stays readable;
// threads are never deleted.
func (s *Store) Archive(ctx context.Context, threadID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE threads
		SET archived = TRUE, conversation_state = $2, updated_at = now()
		WHERE thread_id = $1`,
		threadID, string(decision.StateClosed),
	)
	if err != nil {
		return fmt.Errorf("archive thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("thread %s: %w", threadID, thread.ErrNotFound)
	}
	return nil
}

// List returns all thread rows without their message histories, newest
// first. Inspection surface only; use Get for the full record.
func (s *Store) List(ctx context.Context) ([]*thread.Thread, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT thread_id, conversation_state, clarification_attempts, escalation_reason,
		       cumulative, archived, created_at, updated_at
		FROM threads
		ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var out []*thread.Thread
	for rows.Next() {
		var t thread.Thread
		var state string
		var cumulative []byte
		if err := rows.Scan(&t.ThreadID, &state, &t.ClarificationAttempts, &t.EscalationReason,
			&cumulative, &t.Archived, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		if t.ConversationState, err = decision.ParseState(state); err != nil {
			return nil, fmt.Errorf("list threads: %w", err)
		}
		if err := json.Unmarshal(cumulative, &t.Cumulative); err != nil {
			return nil, fmt.Errorf("decode cumulative extraction: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return out, nil
}
