package state

import (
	"sync"

	"github.com/hupe1980/concierge/core"
)

// InMemoryStore is a volatile StateStore keeping conversation state in a
// process-local map. Each load and save works on a clone so callers never
// alias stored state.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*core.ConversationState
}

var _ core.StateStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{conversations: map[string]*core.ConversationState{}}
}

// Load implements core.StateStore; a missing conversation yields a freshly
// initialized empty state.
func (s *InMemoryStore) Load(conversationID string) (*core.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.conversations[conversationID]; ok {
		return st.Clone(), nil
	}
	return core.NewConversationState(conversationID), nil
}

// Save implements core.StateStore.
func (s *InMemoryStore) Save(st *core.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[st.ConversationID] = st.Clone()
	return nil
}
