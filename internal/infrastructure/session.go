package infrastructure

import "sync"

// SessionManager lets each user run one print at a time, so two photos
// sent together cannot both pass the guest cooldown check.
type SessionManager struct {
	processing map[int64]struct{}
	mu         sync.Mutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		processing: make(map[int64]struct{}),
	}
}

// TryStart marks userID as processing. It returns false if a print for
// that user is already running.
func (sm *SessionManager) TryStart(userID int64) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, busy := sm.processing[userID]; busy {
		return false
	}
	sm.processing[userID] = struct{}{}
	return true
}

// Finish clears the processing mark for userID.
func (sm *SessionManager) Finish(userID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.processing, userID)
}

// Active returns the number of users with a print in progress.
func (sm *SessionManager) Active() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.processing)
}
