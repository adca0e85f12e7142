package ratelimit

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Limiter performs per-user admission control over a rolling window.
//
// Buckets live in process memory keyed by user id and are reset on restart.
// That is acceptable at this design's scale; a multi-instance deployment
// would need a shared counter store behind the same interface.
type Limiter struct {
	mu    sync.Mutex
	users map[uuid.UUID]*rate.Limiter

	limit rate.Limit
	burst int
}

// New creates a limiter admitting at most messagesPerMinute messages per
// user, refilled continuously across the minute.
func New(messagesPerMinute int) *Limiter {
	if messagesPerMinute <= 0 {
		messagesPerMinute = 10
	}
	return &Limiter{
		users: make(map[uuid.UUID]*rate.Limiter),
		limit: rate.Every(time.Minute / time.Duration(messagesPerMinute)),
		burst: messagesPerMinute,
	}
}

// TryAdmit consumes one token from the user's bucket. The consume is
// atomic, so two concurrent requests cannot both be admitted past the
// limit.
func (l *Limiter) TryAdmit(userID uuid.UUID) bool {
	return l.forUser(userID).Allow()
}

// Allowed reports whether an admission would currently succeed without
// consuming a token. The submit endpoint uses it to fail fast with 429
// before any message is persisted; the actual consume happens once, when
// the orchestration run is admitted.
func (l *Limiter) Allowed(userID uuid.UUID) bool {
	return l.forUser(userID).Tokens() >= 1
}

func (l *Limiter) forUser(userID uuid.UUID) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.users[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.users[userID] = lim
	}
	return lim
}
