package main

import (
	"errors"
	"sync"

	"github.com/mrnkr/socketscope/core"
	"go.uber.org/zap"
)

// RoomHub는 모든 연결이 공유하는 방 목록입니다. Singleton으로 등록됩니다.
type RoomHub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]core.ConnectionContext
}

func NewRoomHub() *RoomHub {
	return &RoomHub{rooms: make(map[string]map[string]core.ConnectionContext)}
}

func (h *RoomHub) Join(room string, conn core.ConnectionContext) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]core.ConnectionContext)
		h.rooms[room] = members
	}
	members[conn.ConnID()] = conn
	return len(members)
}

func (h *RoomHub) Leave(room string, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[room], connID)
}

func (h *RoomHub) Broadcast(room string, event string, args ...any) {
	h.mu.RLock()
	members := make([]core.ConnectionContext, 0, len(h.rooms[room]))
	for _, conn := range h.rooms[room] {
		members = append(members, conn)
	}
	h.mu.RUnlock()

	for _, conn := range members {
		_ = conn.Emit(event, args...)
	}
}

func (h *RoomHub) Counts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	counts := make(map[string]int, len(h.rooms))
	for room, members := range h.rooms {
		if len(members) > 0 {
			counts[room] = len(members)
		}
	}
	return counts
}

// RoomsHandler는 방 이름별 인원 수를 돌려주는 핸들러를 만듭니다.
func RoomsHandler(hub *RoomHub) func(conn core.ConnectionContext) map[string]int {
	return func(core.ConnectionContext) map[string]int {
		return hub.Counts()
	}
}

// Presence는 연결 하나가 들어가 있는 방 목록입니다. Scoped로 등록되며
// 연결이 끊기면 Dispose에서 모든 방을 떠납니다.
type Presence struct {
	connID string
	hub    *RoomHub
	logger *zap.Logger
	rooms  []string
}

func NewPresence(hub *RoomHub, logger *zap.Logger) *Presence {
	return &Presence{hub: hub, logger: logger}
}

func (p *Presence) Dispose() error {
	for _, room := range p.rooms {
		p.hub.Leave(room, p.connID)
	}
	p.logger.Info("연결 종료로 방을 떠납니다", zap.String("conn", p.connID), zap.Strings("rooms", p.rooms))
	return nil
}

type ChatMessage struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

type ChatHandler struct {
	Hub      *RoomHub  `inject:""`
	Presence *Presence `inject:""`
}

func (c *ChatHandler) Join(conn core.ConnectionContext, room string) (map[string]any, error) {
	if room == "" {
		return nil, errors.New("room은 비어 있을 수 없습니다")
	}
	c.Presence.connID = conn.ConnID()
	c.Presence.rooms = append(c.Presence.rooms, room)
	members := c.Hub.Join(room, conn)

	return map[string]any{
		"room":    room,
		"members": members,
	}, nil
}

func (c *ChatHandler) Send(conn core.ConnectionContext, msg ChatMessage) *core.Future {
	return core.Async(func() (any, error) {
		c.Hub.Broadcast(msg.Room, "chat.message", conn.ConnID(), msg.Text)
		return "delivered", nil
	})
}

// Auth는 연결 미들웨어로 쓰입니다.
func (c *ChatHandler) Auth(conn core.ConnectionContext, next core.Next) (any, error) {
	conn.Set("name", conn.ConnID()[:8])
	return next()
}
