package ws

import (
	"sync"
)

// ConnectionObserver is notified when dashboard clients come and go.
type ConnectionObserver interface {
	ClientConnected()
	ClientDisconnected()
}

// Manager tracks dashboard connections and fans rendered views out to them.
type Manager struct {
	mu          sync.RWMutex
	connections map[uint64]*Connection
	nextID      uint64
	observer    ConnectionObserver
	last        []byte
}

// NewManager builds connection manager. observer is optional.
func NewManager(observer ConnectionObserver) *Manager {
	return &Manager{
		connections: make(map[uint64]*Connection),
		observer:    observer,
	}
}

func (m *Manager) newID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID
}

// Add registers new connection and replays the latest broadcast to it.
func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	m.connections[conn.ID()] = conn
	last := m.last
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.ClientConnected()
	}
	if last != nil {
		conn.Send(last)
	}
}

// Remove removes connection.
func (m *Manager) Remove(id uint64) {
	m.mu.Lock()
	_, ok := m.connections[id]
	delete(m.connections, id)
	m.mu.Unlock()

	if ok && m.observer != nil {
		m.observer.ClientDisconnected()
	}
}

// Count returns the number of connected clients.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// Broadcast queues payload on every connection.
func (m *Manager) Broadcast(payload []byte) {
	m.mu.Lock()
	m.last = payload
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	m.mu.Unlock()

	for _, conn := range conns {
		conn.Send(payload)
	}
}
