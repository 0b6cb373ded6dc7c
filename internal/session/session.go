package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatrelay/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxCommandSize = 4 * 1024
)

// Session is one live WebSocket connection. Writes are serialized on a
// mutex so the relay and the keepalive ticker never interleave frames.
type Session struct {
	id        string
	principal string
	conn      *websocket.Conn
	logger    logger.Logger

	writeMu sync.Mutex
	closed  atomic.Bool
}

func newSession(principal string, conn *websocket.Conn, log logger.Logger) *Session {
	return &Session{
		id:        uuid.NewString(),
		principal: principal,
		conn:      conn,
		logger:    log,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Principal() string {
	return s.principal
}

func (s *Session) IsOpen() bool {
	return !s.closed.Load()
}

func (s *Session) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return websocket.ErrCloseSent
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.close()
		return err
	}
	return nil
}

func (s *Session) ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed.Load() {
		return websocket.ErrCloseSent
	}

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *Session) close() {
	if s.closed.CompareAndSwap(false, true) {
		s.conn.Close()
	}
}
