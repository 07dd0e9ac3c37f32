package room

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ashwinsk01/overkillcah/internal/apperrors"
	"github.com/ashwinsk01/overkillcah/internal/catalog"
)

// ResultRecorder receives finished-round and finished-game results. The
// leaderboard store implements it; a nil recorder disables recording.
type ResultRecorder interface {
	RecordRoundWin(ctx context.Context, playerName string)
	RecordGameResult(ctx context.Context, winnerName string, playerNames []string)
}

// Manager owns the process-wide room registry: lazy creation on first
// join, destruction on last leave, and reaping of abandoned rooms.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cat     *catalog.Catalog
	rules   Rules
	results ResultRecorder

	roomTimeout time.Duration
	stop        chan struct{}
}

// NewManager creates the registry and starts its cleanup loop.
func NewManager(cat *catalog.Catalog, rules Rules, roomTimeout time.Duration, results ResultRecorder) *Manager {
	m := &Manager{
		rooms:       make(map[string]*Room),
		cat:         cat,
		rules:       rules,
		results:     results,
		roomTimeout: roomTimeout,
		stop:        make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Join routes a connection into a room, creating the room on first use.
// Returns the room and the joiner's player ID.
func (m *Manager) Join(conn Conn, roomID, name string) (*Room, string, error) {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if !ok {
		r = New(roomID, m.cat, m.rules, m.results)
		m.rooms[roomID] = r
		logrus.WithField("room", roomID).Info("room created")
	}
	m.mu.Unlock()

	playerID, err := r.Join(conn, name)
	if err != nil {
		m.dropIfEmpty(roomID)
		return nil, "", err
	}
	return r, playerID, nil
}

// Get looks up a room by id.
func (m *Manager) Get(roomID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[roomID]
}

// Leave removes the player from their room and destroys the room when its
// player map empties.
func (m *Manager) Leave(roomID, playerID string) error {
	r := m.Get(roomID)
	if r == nil {
		return apperrors.ErrRoomNotFound
	}
	if r.Leave(playerID) {
		m.destroy(roomID)
	}
	return nil
}

// Disconnect marks the player offline. The record and the room survive;
// the cleanup loop reaps rooms nobody returns to.
func (m *Manager) Disconnect(roomID, playerID string) {
	if r := m.Get(roomID); r != nil {
		r.Disconnect(playerID)
	}
}

// Count reports the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// ActiveGames counts rooms with a game in progress.
func (m *Manager) ActiveGames() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.rooms {
		switch r.Phase() {
		case PhaseWaiting, PhaseGameOver:
		default:
			n++
		}
	}
	return n
}

// Close stops the cleanup loop and tears down every room.
func (m *Manager) Close() {
	close(m.stop)
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.Close()
		delete(m.rooms, id)
	}
}

func (m *Manager) destroy(roomID string) {
	m.mu.Lock()
	r, ok := m.rooms[roomID]
	if ok {
		delete(m.rooms, roomID)
	}
	m.mu.Unlock()

	if ok {
		r.Close()
		logrus.WithField("room", roomID).Info("room destroyed")
	}
}

func (m *Manager) dropIfEmpty(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[roomID]; ok {
		r.mu.Lock()
		empty := len(r.players) == 0
		r.mu.Unlock()
		if empty {
			delete(m.rooms, roomID)
		}
	}
}

// cleanupLoop reaps rooms whose players have all disconnected and that
// have been idle past the room timeout. Explicit leaves destroy rooms
// immediately; this catches rooms abandoned by dropped connections.
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Manager) cleanup() {
	cutoff := time.Now().Add(-m.roomTimeout)

	m.mu.Lock()
	var stale []*Room
	for id, r := range m.rooms {
		if r.Idle(cutoff) {
			stale = append(stale, r)
			delete(m.rooms, id)
		}
	}
	m.mu.Unlock()

	for _, r := range stale {
		r.Close()
		logrus.WithField("room", r.ID).Info("stale room reaped")
	}
}
