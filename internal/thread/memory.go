package thread

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/harborline/quartermast/internal/decision"
)

// MemoryStore is an in-process Store used in tests and single-node setups
// without a database. Copies in and out are deep, so callers can keep
// mutating their Thread without racing the stored state.
type MemoryStore struct {
	mu      sync.Mutex
	threads map[string]*Thread
	seen    map[string]bool // message ids already applied
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{threads: map[string]*Thread{}, seen: map[string]bool{}}
}

func (s *MemoryStore) Get(ctx context.Context, threadID string) (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	return deepCopy(t)
}

func (s *MemoryStore) SaveWithMessage(ctx context.Context, t *Thread, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[msg.MessageID] {
		return fmt.Errorf("message %s: %w", msg.MessageID, ErrDuplicateMessage)
	}
	stored, err := deepCopy(t)
	if err != nil {
		return err
	}
	stored.Messages = append(stored.Messages, msg)
	s.threads[t.ThreadID] = stored
	s.seen[msg.MessageID] = true
	return nil
}

// Archive closes a thread. The record stays readable; threads are never
// deleted.
func (s *MemoryStore) Archive(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return fmt.Errorf("thread %s: %w", threadID, ErrNotFound)
	}
	t.Archived = true
	t.ConversationState = decision.StateClosed
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Thread, 0, len(s.threads))
	for _, t := range s.threads {
		cp, err := deepCopy(t)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ThreadID < out[j].ThreadID })
	return out, nil
}

// deepCopy round-trips through JSON, the same encoding the Postgres store
// uses, so both stores hand back identically shaped threads.
func deepCopy(t *Thread) (*Thread, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode thread: %w", err)
	}
	var cp Thread
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("decode thread: %w", err)
	}
	return &cp, nil
}
