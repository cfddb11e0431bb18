package state

import (
	"sync"
	"time"
)

// Session is a user's in-flight dialogue. Store methods hand out copies, so
// holding a Session never aliases the stored one.
type Session[T any] struct {
	UserID     int64
	ChatID     int64
	Data       T
	LastActive time.Time

	// closing is set by Claim; a closing session is invisible to eviction.
	closing bool
}

// Closing reports whether a finalizer has claimed the session.
func (s Session[T]) Closing() bool {
	return s.closing
}

// Idle pairs a user with the chat that should be told about an eviction.
type Idle struct {
	UserID int64
	ChatID int64
}

// Store is a mutex-guarded map from user ID to Session. Every method is one
// critical section with no I/O inside, so callers may use it from the update
// loop and the reaper at the same time.
type Store[T any] struct {
	mu       sync.Mutex
	sessions map[int64]*Session[T]
}

// NewStore returns an empty Store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{sessions: make(map[int64]*Session[T])}
}

// Len reports the number of live sessions, claimed ones included.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Get returns a copy of the user's session.
func (s *Store[T]) Get(userID int64) (Session[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return *sess, true
	}
	return Session[T]{}, false
}

// GetOrInsert returns the user's session, creating it with data when absent.
// The boolean is true when the session was created by this call.
func (s *Store[T]) GetOrInsert(userID, chatID int64, data T, now time.Time) (Session[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return *sess, false
	}
	sess := &Session[T]{UserID: userID, ChatID: chatID, Data: data, LastActive: now}
	s.sessions[userID] = sess
	return *sess, true
}

// MutateIfPresent applies fn to the stored session under the lock and returns
// the result. Claimed sessions are left alone. fn must not block.
func (s *Store[T]) MutateIfPresent(userID int64, fn func(*Session[T])) (Session[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok || sess.closing {
		return Session[T]{}, false
	}
	fn(sess)
	sess.UserID = userID
	return *sess, true
}

// Claim marks the session as closing so the reaper can no longer evict it.
// Exactly one of Claim and RemoveIfIdle succeeds for a given session.
func (s *Store[T]) Claim(userID int64) (Session[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok || sess.closing {
		return Session[T]{}, false
	}
	sess.closing = true
	return *sess, true
}

// Remove deletes the user's session. Removing a missing key is a no-op.
func (s *Store[T]) Remove(userID int64) (Session[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return Session[T]{}, false
	}
	delete(s.sessions, userID)
	return *sess, true
}

// RemoveIfIdle deletes the session only if it is still unclaimed and was last
// active before threshold. The check and the delete share one critical section.
func (s *Store[T]) RemoveIfIdle(userID int64, threshold time.Time) (Session[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok || sess.closing || !sess.LastActive.Before(threshold) {
		return Session[T]{}, false
	}
	delete(s.sessions, userID)
	return *sess, true
}

// SnapshotIdleBefore lists unclaimed sessions last active before threshold.
func (s *Store[T]) SnapshotIdleBefore(threshold time.Time) []Idle {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Idle
	for id, sess := range s.sessions {
		if sess.closing || !sess.LastActive.Before(threshold) {
			continue
		}
		out = append(out, Idle{UserID: id, ChatID: sess.ChatID})
	}
	return out
}
