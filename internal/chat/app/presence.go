package app

import (
	"sort"
	"sync"

	"campus_chat_service/internal/chat/domain"
)

// PresenceTracker process-local map of identity to active connection handles.
// A user is online while at least one connection is registered; multiple
// devices per user are expected. Never persisted, so it is only correct for a
// single-instance deployment; scaling out requires moving presence to a
// shared store alongside the Redis fan-out.
type PresenceTracker struct {
	mu     sync.Mutex
	byConn map[interface{}]string
	byUser map[string]map[interface{}]struct{}
}

// NewPresenceTracker create PresenceTracker
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		byConn: make(map[interface{}]string),
		byUser: make(map[string]map[interface{}]struct{}),
	}
}

// OnConnect register a connection handle for a user
func (p *PresenceTracker) OnConnect(userID string, conn interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.byConn[conn] = userID
	conns, ok := p.byUser[userID]
	if !ok {
		conns = make(map[interface{}]struct{})
		p.byUser[userID] = conns
	}
	conns[conn] = struct{}{}
}

// OnDisconnect remove a connection handle; the entry for its user disappears
// with the last connection
func (p *PresenceTracker) OnDisconnect(conn interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.byConn[conn]
	if !ok {
		return
	}
	delete(p.byConn, conn)

	conns := p.byUser[userID]
	delete(conns, conn)
	if len(conns) == 0 {
		delete(p.byUser, userID)
	}
}

// Snapshot current online set, sorted by user id for stable output
func (p *PresenceTracker) Snapshot() []domain.OnlineUser {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make([]domain.OnlineUser, 0, len(p.byUser))
	for userID, conns := range p.byUser {
		snapshot = append(snapshot, domain.OnlineUser{
			UserID:    userID,
			ConnCount: len(conns),
		})
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].UserID < snapshot[j].UserID
	})
	return snapshot
}
