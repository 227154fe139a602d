package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// SessionManager keeps transient conversation data per user.
// The data of one phone is only touched while holding that user's store lock;
// the manager's mutex guards the map itself.
type SessionManager struct {
	sessions   map[string]*models.ConversationSession
	mu         sync.RWMutex
	sessionTTL time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(ttl time.Duration, logger zerolog.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionManager{
		sessions:   make(map[string]*models.ConversationSession),
		sessionTTL: ttl,
		now:        time.Now,
		logger:     logger.With().Str("component", "sessions").Logger(),
	}
}

// Get returns the active session, starting a fresh one when none exists or
// the previous one expired
func (sm *SessionManager) Get(phone string) *models.ConversationSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	if s, ok := sm.sessions[phone]; ok && now.Before(s.ExpiresAt) {
		return s
	}

	s := &models.ConversationSession{
		SessionID:  uuid.NewString(),
		Phone:      phone,
		CreatedAt:  now,
		LastActive: now,
		ExpiresAt:  now.Add(sm.sessionTTL),
	}
	sm.sessions[phone] = s
	sm.logger.Debug().Str("phone", phone).Str("session_id", s.SessionID).Msg("Session created")
	return s
}

// Touch extends the session after activity
func (sm *SessionManager) Touch(phone string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if s, ok := sm.sessions[phone]; ok {
		now := sm.now()
		s.LastActive = now
		s.ExpiresAt = now.Add(sm.sessionTTL)
	}
}

// Reset discards the session; the next Get starts a new one
func (sm *SessionManager) Reset(phone string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, phone)
}

// CleanupExpired removes expired sessions and returns how many were removed
func (sm *SessionManager) CleanupExpired() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	removed := 0
	for phone, s := range sm.sessions {
		if now.After(s.ExpiresAt) {
			delete(sm.sessions, phone)
			removed++
			sm.logger.Debug().Str("phone", phone).Msg("Cleaned up expired session")
		}
	}
	return removed
}

// ActiveCount is the number of sessions that have not expired
func (sm *SessionManager) ActiveCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	now := sm.now()
	n := 0
	for _, s := range sm.sessions {
		if now.Before(s.ExpiresAt) {
			n++
		}
	}
	return n
}
