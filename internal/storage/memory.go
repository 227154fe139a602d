package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/Ananth-NQI/tripguide-backend/internal/models"
)

// MemoryStore holds all users in memory. Everything is lost on restart.
type MemoryStore struct {
	users map[string]*models.User
	mu    sync.RWMutex

	// Per-user locks serialize concurrent messages from one identity. An
	// entry lives while someone holds or waits for it.
	locks   map[string]*userLock
	locksMu sync.Mutex

	closed bool
	now    func() time.Time
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*models.User),
		locks: make(map[string]*userLock),
		now:   time.Now,
	}
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (m *MemoryStore) Lock(phone string) func() {
	m.locksMu.Lock()
	l, ok := m.locks[phone]
	if !ok {
		l = &userLock{}
		m.locks[phone] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			m.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(m.locks, phone)
			}
			m.locksMu.Unlock()
		})
	}
}

func (m *MemoryStore) heldLocks() int {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	return len(m.locks)
}

func (m *MemoryStore) GetOrCreate(phone string) (*models.User, bool, error) {
	if phone == "" {
		return nil, false, fmt.Errorf("empty phone")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, fmt.Errorf("store closed")
	}
	if u, ok := m.users[phone]; ok {
		return u, false, nil
	}

	u := models.NewUser(phone, m.now())
	m.users[phone] = u
	return u, true, nil
}

func (m *MemoryStore) Get(phone string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[phone]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return u, nil
}

func (m *MemoryStore) Save(user *models.User) error {
	if user == nil || user.Phone == "" {
		return fmt.Errorf("invalid user")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("store closed")
	}
	user.LastInteraction = m.now()
	m.users[user.Phone] = user
	return nil
}

func (m *MemoryStore) Delete(phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[phone]; !ok {
		return models.ErrUserNotFound
	}
	delete(m.users, phone)
	return nil
}

func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// Close drops every user; later writes fail
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[string]*models.User)
	m.closed = true
	return nil
}
