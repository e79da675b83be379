package service

import (
	"sarah/internal/core/domain"
	"sync"
)

// Conversation is the stored state of a user in the middle of a multi-step exchange.
type Conversation struct {
	Context *domain.UserContext
	// Owner is the plugin that started the conversation. Its config is handed to every step.
	Owner string
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// ConversationStore maps user identities to their active conversation. Lock serializes
// the read-modify-write cycle of a single user without blocking other users.
type ConversationStore struct {
	mu            sync.Mutex
	conversations map[string]Conversation
	locks         map[string]*userLock
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]Conversation),
		locks:         make(map[string]*userLock),
	}
}

// Lock acquires the lock of userID and returns the function releasing it.
func (s *ConversationStore) Lock(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}

func (s *ConversationStore) Get(userID string) (Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[userID]
	return c, ok
}

func (s *ConversationStore) Set(userID string, c Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[userID] = c
}

func (s *ConversationStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, userID)
}

func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.conversations)
}
