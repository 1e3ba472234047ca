package session

import "sync"

// Store holds at most one live session per user.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	next     uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Open starts a new session for userID in the given state. An idle
// session is replaced and its actions become stale; a session with a
// running transfer is kept and ErrBusy is returned.
func (st *Store) Open(userID, chatID int64, state State) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if old, ok := st.sessions[userID]; ok {
		if old.Busy() {
			return nil, ErrBusy
		}
		old.close()
	}

	st.next++
	s := &Session{
		ID:      st.next,
		UserID:  userID,
		ChatID:  chatID,
		State:   state,
		offered: make(map[string]Target),
	}
	st.sessions[userID] = s
	return s, nil
}

// Get returns the live session for userID.
func (st *Store) Get(userID int64) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[userID]
	return s, ok
}

// Close removes the session for userID if it is still generation id.
// A newer session opened in the meantime is left alone.
func (st *Store) Close(userID int64, id uint64) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[userID]
	if !ok || s.ID != id {
		return false
	}
	s.close()
	delete(st.sessions, userID)
	return true
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
