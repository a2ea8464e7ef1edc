package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"users-service/entities"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

// subscriber serialises writes to one connection, as gorilla requires.
type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *subscriber) write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// Manager keeps track of subscribers to the live user feed.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*subscriber // clientID -> subscriber
}

func NewManager() *Manager {
	return &Manager{connections: make(map[string]*subscriber)}
}

// Register adds a subscriber and returns the id it was stored under.
func (m *Manager) Register(conn *websocket.Conn) string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[id] = &subscriber{conn: conn}
	return id
}

// Unregister removes a subscriber and closes its connection.
func (m *Manager) Unregister(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.connections[clientID]; ok {
		_ = sub.conn.Close()
		delete(m.connections, clientID)
	}
}

// Broadcast writes payload to every subscriber concurrently, so one slow
// client delays the call by at most writeWait. Connections that fail the
// write are dropped. It returns the number of successful deliveries.
func (m *Manager) Broadcast(payload []byte) int {
	m.mu.RLock()
	targets := make(map[string]*subscriber, len(m.connections))
	for id, sub := range m.connections {
		targets[id] = sub
	}
	m.mu.RUnlock()

	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
	)
	for id, sub := range targets {
		wg.Add(1)
		go func(id string, sub *subscriber) {
			defer wg.Done()
			if err := sub.write(payload); err != nil {
				logrus.WithError(err).WithField("client_id", id).Warn("dropping websocket subscriber")
				m.Unregister(id)
				return
			}
			delivered.Add(1)
		}(id, sub)
	}
	wg.Wait()
	return int(delivered.Load())
}

func (m *Manager) Name() string { return "websocket" }

// Publish pushes a user event to every subscriber.
func (m *Manager) Publish(_ context.Context, event entities.UserEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	m.Broadcast(payload)
	return nil
}

// Count returns the number of connected subscribers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// List returns a copy of current subscriber ids.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.connections))
	for id := range m.connections {
		ids = append(ids, id)
	}
	return ids
}
