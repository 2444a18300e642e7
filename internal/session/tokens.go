package session

import (
	"errors"
	"sync"
	"time"

	"drawboard/internal/models"
	"drawboard/internal/registry"

	"github.com/segmentio/ksuid"
)

// ErrReconnectTokenInvalid means the token is unknown, expired,
// already used, or its prior room membership is no longer resolvable.
// The client must fall back to a fresh connect + join.
var ErrReconnectTokenInvalid = errors.New("reconnect token invalid")

// reconnectSession is what a token can resume: the prior connection's
// identity and room membership, captured as the session progresses.
type reconnectSession struct {
	Token     string
	SessionID string // prior client id
	UserID    string
	UserName  string
	CanvasID  string
	Info      models.UserInfo
	Role      models.Role
	ExpiresAt time.Time
}

// tokenStore holds single-use reconnect tokens. Each client has at
// most one outstanding token; minting a new one invalidates the old,
// which limits replay after a successful reconnect.
type tokenStore struct {
	mu       sync.Mutex
	byToken  map[string]*reconnectSession
	byClient map[string]string // client id → outstanding token
	clock    registry.Clock
	ttl      time.Duration
}

func newTokenStore(clock registry.Clock, ttl time.Duration) *tokenStore {
	return &tokenStore{
		byToken:  make(map[string]*reconnectSession),
		byClient: make(map[string]string),
		clock:    clock,
		ttl:      ttl,
	}
}

// mint issues a fresh token for the client, replacing any outstanding
// one.
func (s *tokenStore) mint(clientID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byClient[clientID]; ok {
		delete(s.byToken, old)
	}

	token := ksuid.New().String() + ksuid.New().String()
	s.byToken[token] = &reconnectSession{
		Token:     token,
		SessionID: clientID,
		ExpiresAt: s.clock.Now().Add(s.ttl),
	}
	s.byClient[clientID] = token
	return token
}

// update mutates the client's outstanding token record so it tracks
// the session's current identity and room.
func (s *tokenStore) update(clientID string, fn func(*reconnectSession)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, ok := s.byClient[clientID]; ok {
		if rec, ok := s.byToken[token]; ok {
			fn(rec)
		}
	}
}

// redeem consumes a token. Tokens are single-use: a successful redeem
// deletes the record.
func (s *tokenStore) redeem(token string) (*reconnectSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byToken[token]
	if !ok {
		return nil, ErrReconnectTokenInvalid
	}

	delete(s.byToken, token)
	delete(s.byClient, rec.SessionID)

	if s.clock.Now().After(rec.ExpiresAt) {
		return nil, ErrReconnectTokenInvalid
	}
	return rec, nil
}

// invalidate drops the client's outstanding token, used on manager
// shutdown where resuming makes no sense.
func (s *tokenStore) invalidate(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, ok := s.byClient[clientID]; ok {
		delete(s.byToken, token)
		delete(s.byClient, clientID)
	}
}

// prune discards expired tokens; called periodically by the manager.
func (s *tokenStore) prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	pruned := 0
	for token, rec := range s.byToken {
		if now.After(rec.ExpiresAt) {
			delete(s.byToken, token)
			delete(s.byClient, rec.SessionID)
			pruned++
		}
	}
	return pruned
}
