package memory

import (
	"sync"

	"managemind-quiz-service/internal/app"
)

// SessionRepository is the in-memory implementation of app.SessionRepository,
// indexed by session id and join code.
type SessionRepository struct {
	mu     sync.RWMutex
	byID   map[string]*app.LiveSession
	byCode map[string]*app.LiveSession
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		byID:   make(map[string]*app.LiveSession),
		byCode: make(map[string]*app.LiveSession),
	}
}

func (r *SessionRepository) Put(session *app.LiveSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[session.ID()] = session
	r.byCode[session.JoinCode()] = session
}

func (r *SessionRepository) Get(id string) (*app.LiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byID[id]
	return session, ok
}

func (r *SessionRepository) ByCode(code string) (*app.LiveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byCode[code]
	return session, ok
}

func (r *SessionRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byCode, session.JoinCode())
}

func (r *SessionRepository) Active() []*app.LiveSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*app.LiveSession, 0, len(r.byID))
	for _, session := range r.byID {
		if session.IsActive() {
			out = append(out, session)
		}
	}
	return out
}
