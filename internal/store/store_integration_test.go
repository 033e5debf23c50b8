//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/quartermast/internal/decision"
	"github.com/harborline/quartermast/internal/extraction"
	"github.com/harborline/quartermast/internal/thread"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func cleanupThread(t *testing.T, s *Store, threadID string) {
	t.Helper()
	t.Cleanup(func() {
		ctx := context.Background()
		s.pool.Exec(ctx, "DELETE FROM thread_messages WHERE thread_id = $1", threadID)
		s.pool.Exec(ctx, "DELETE FROM threads WHERE thread_id = $1", threadID)
	})
}

func integrationMessage(id string, sentAt time.Time) thread.Message {
	return thread.Message{
		MessageID: id,
		Sender:    "buyer@example.com",
		SentAt:    sentAt,
		Subject:   "Freight quote",
		Body:      "integration test message",
		ExtractionSnapshot: extraction.Partial{
			extraction.CategoryShipment: {extraction.FieldOrigin: "Shanghai"},
		},
		ClassifierConfidence: 0.9,
	}
}

func TestIntegration_SaveAndGetThread(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	threadID := "integration-" + uuid.New().String()[:8]
	cleanupThread(t, s, threadID)
	now := time.Now().UTC().Truncate(time.Microsecond)

	th := thread.New(threadID, now)
	th.ConversationState = decision.StateAwaitingClarification
	th.ClarificationAttempts = 1
	th.Cumulative.Set(extraction.CategoryShipment, extraction.FieldOrigin, "Shanghai")
	th.Cumulative.Set(extraction.CategoryShipment, extraction.FieldContainerType, "40HC")

	if err := s.SaveWithMessage(ctx, th, integrationMessage(uuid.New().String(), now)); err != nil {
		t.Fatalf("SaveWithMessage failed: %v", err)
	}

	got, err := s.Get(ctx, threadID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ConversationState != decision.StateAwaitingClarification {
		t.Errorf("expected state AWAITING_CLARIFICATION, got %s", got.ConversationState)
	}
	if got.ClarificationAttempts != 1 {
		t.Errorf("expected 1 clarification attempt, got %d", got.ClarificationAttempts)
	}
	if v := got.Cumulative.Get(extraction.CategoryShipment, extraction.FieldOrigin); v != "Shanghai" {
		t.Errorf("expected origin Shanghai, got %q", v)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got.Messages))
	}
	if v, ok := got.Messages[0].ExtractionSnapshot.Get(extraction.CategoryShipment, extraction.FieldOrigin); !ok || v != "Shanghai" {
		t.Errorf("extraction snapshot lost in round trip: (%q, %v)", v, ok)
	}

	// Second message updates the thread state and appends to the history.
	th.ConversationState = decision.StateAwaitingConfirmation
	th.Cumulative.Set(extraction.CategoryShipment, extraction.FieldDestination, "Hamburg")
	th.UpdatedAt = now.Add(time.Minute)
	if err := s.SaveWithMessage(ctx, th, integrationMessage(uuid.New().String(), now.Add(time.Minute))); err != nil {
		t.Fatalf("SaveWithMessage (second) failed: %v", err)
	}

	got, err = s.Get(ctx, threadID)
	if err != nil {
		t.Fatalf("Get after second save failed: %v", err)
	}
	if got.ConversationState != decision.StateAwaitingConfirmation {
		t.Errorf("expected state AWAITING_CONFIRMATION, got %s", got.ConversationState)
	}
	if len(got.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(got.Messages))
	}
}

func TestIntegration_DuplicateMessageID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	threadID := "integration-" + uuid.New().String()[:8]
	cleanupThread(t, s, threadID)
	now := time.Now().UTC().Truncate(time.Microsecond)
	messageID := uuid.New().String()

	th := thread.New(threadID, now)
	th.ConversationState = decision.StateAwaitingClarification
	if err := s.SaveWithMessage(ctx, th, integrationMessage(messageID, now)); err != nil {
		t.Fatalf("first SaveWithMessage failed: %v", err)
	}

	// Replay with the same message id but mutated state: the tx must abort
	// before the thread row changes.
	th.ConversationState = decision.StateEscalated
	th.ClarificationAttempts = 99
	err := s.SaveWithMessage(ctx, th, integrationMessage(messageID, now))
	if !errors.Is(err, thread.ErrDuplicateMessage) {
		t.Fatalf("expected ErrDuplicateMessage, got %v", err)
	}

	got, err := s.Get(ctx, threadID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ConversationState != decision.StateAwaitingClarification {
		t.Errorf("duplicate save mutated thread state: %s", got.ConversationState)
	}
	if got.ClarificationAttempts != 0 {
		t.Errorf("duplicate save mutated attempts: %d", got.ClarificationAttempts)
	}
	if len(got.Messages) != 1 {
		t.Errorf("expected 1 message after replay, got %d", len(got.Messages))
	}
}

func TestIntegration_Archive(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	threadID := "integration-" + uuid.New().String()[:8]
	cleanupThread(t, s, threadID)
	now := time.Now().UTC().Truncate(time.Microsecond)

	th := thread.New(threadID, now)
	if err := s.SaveWithMessage(ctx, th, integrationMessage(uuid.New().String(), now)); err != nil {
		t.Fatalf("SaveWithMessage failed: %v", err)
	}

	if err := s.Archive(ctx, threadID); err != nil {
		t.Fatalf("Archive failed: %v", err)
	}

	got, err := s.Get(ctx, threadID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Archived {
		t.Error("expected archived thread")
	}
	if got.ConversationState != decision.StateClosed {
		t.Errorf("expected state CLOSED, got %s", got.ConversationState)
	}

	if err := s.Archive(ctx, "integration-missing-"+uuid.New().String()[:8]); !errors.Is(err, thread.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown thread, got %v", err)
	}
}

func TestIntegration_GetMissingThread(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.Get(context.Background(), "integration-missing-"+uuid.New().String()[:8])
	if !errors.Is(err, thread.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
