package server

import "sync"

// groupManager 管理各房间的广播订阅
type groupManager struct {
	mu     sync.RWMutex
	groups map[string]*roomGroup
}

func newGroupManager() *groupManager {
	return &groupManager{groups: make(map[string]*roomGroup)}
}

func (m *groupManager) subscribe(code string, c Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[code]
	if !ok {
		g = newRoomGroup(code)
		m.groups[code] = g
	}
	g.conns[c.ID()] = c
}

func (m *groupManager) unsubscribe(code, connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[code]
	if !ok {
		return
	}
	delete(g.conns, connID)
	if len(g.conns) == 0 {
		delete(m.groups, code)
	}
}

// drop 删除整个房间的订阅，返回原有成员
func (m *groupManager) drop(code string) []Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[code]
	if !ok {
		return nil
	}
	delete(m.groups, code)
	return g.members()
}

// members 当前订阅者的拷贝，广播时不持有锁
func (m *groupManager) members(code string) []Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[code]
	if !ok {
		return nil
	}
	return g.members()
}

func (g *roomGroup) members() []Conn {
	out := make([]Conn, 0, len(g.conns))
	for _, c := range g.conns {
		out = append(out, c)
	}
	return out
}
