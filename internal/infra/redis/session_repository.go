package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"managemind-quiz-service/internal/app"
	"managemind-quiz-service/internal/infra/memory"
)

// SessionRepository is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - It keeps the sessions themselves in the local in-memory repository to
//     reuse the in-process lobby broadcast logic.
//   - Redis marks session liveness by id and join code, so another instance
//     can tell a code is taken before accepting it.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
	local  *memory.SessionRepository
}

func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		client: client,
		ttl:    ttl,
		local:  memory.NewSessionRepository(),
	}
}

func (r *SessionRepository) Put(session *app.LiveSession) {
	r.local.Put(session)
	// best-effort liveness markers
	ctx := context.Background()
	_ = r.client.Set(ctx, r.idKey(session.ID()), session.JoinCode(), r.ttl).Err()
	_ = r.client.Set(ctx, r.codeKey(session.JoinCode()), session.ID(), r.ttl).Err()
}

func (r *SessionRepository) Get(id string) (*app.LiveSession, bool) {
	return r.local.Get(id)
}

func (r *SessionRepository) ByCode(code string) (*app.LiveSession, bool) {
	if session, ok := r.local.ByCode(code); ok {
		return session, true
	}
	// a marker without a local session means the code is held elsewhere;
	// report it taken so code generation cannot reuse it
	if err := r.client.Get(context.Background(), r.codeKey(code)).Err(); err == nil {
		return nil, true
	}
	return nil, false
}

func (r *SessionRepository) Delete(id string) {
	session, ok := r.local.Get(id)
	r.local.Delete(id)
	ctx := context.Background()
	_ = r.client.Del(ctx, r.idKey(id)).Err()
	if ok {
		_ = r.client.Del(ctx, r.codeKey(session.JoinCode())).Err()
	}
}

func (r *SessionRepository) Active() []*app.LiveSession {
	return r.local.Active()
}

func (r *SessionRepository) idKey(id string) string {
	return "live:session:" + id
}

func (r *SessionRepository) codeKey(code string) string {
	return "live:code:" + code
}
