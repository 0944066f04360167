// pkg/network/server.go
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/opd-ai/go-carsoccer/pkg/config"
	"github.com/opd-ai/go-carsoccer/pkg/engine"
	"github.com/opd-ai/go-carsoccer/pkg/event"
	"github.com/opd-ai/go-carsoccer/pkg/logging"
	"github.com/opd-ai/go-carsoccer/pkg/validation"
)

// ErrServerClosed is returned by Start after Stop
var ErrServerClosed = errors.New("stream server closed")

// ErrServerFull is returned when every spectator slot is taken
var ErrServerFull = errors.New("stream server full")

const (
	pingInterval   = 20 * time.Second
	snapshotBuffer = 4
	sendBuffer     = 16
)

// StreamServer serves match snapshots to spectators on /ws and forwards their key events
// to the runner. All spectators share the one car.
type StreamServer struct {
	runner    *engine.Runner
	bus       *event.Bus
	env       *config.EnvironmentConfig
	logger    *logging.Logger
	upgrader  websocket.Upgrader
	validator *validation.MessageValidator

	mu       sync.RWMutex
	sessions map[string]*session
	pending  int // slots reserved by upgrades in flight
	closed   bool

	httpServer *http.Server
	listener   net.Listener
}

type session struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	guard     *WriteGuard
	states    <-chan *engine.MatchState
	unsub     func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewStreamServer creates a stream server for the runner. Spectator joins and leaves are
// published on bus.
func NewStreamServer(runner *engine.Runner, bus *event.Bus, env *config.EnvironmentConfig, logger *logging.Logger) *StreamServer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &StreamServer{
		runner: runner,
		bus:    bus,
		env:    env,
		logger: logger.WithComponent("stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validator: validation.NewMessageValidator(env.InputRateLimit, env.InputBurst),
		sessions:  make(map[string]*session),
	}
}

// Routes registers the websocket endpoint on mux
func (s *StreamServer) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleWS)
}

// Start listens on address and serves handler, which should include Routes.
func (s *StreamServer) Start(address string, handler http.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start stream server: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "stream server failed", err)
		}
	}()

	s.logger.Info(context.Background(), "stream server started", "address", listener.Addr().String())
	return nil
}

// Addr returns the listening address, or nil before Start
func (s *StreamServer) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// IsListening reports whether the server is accepting spectators
func (s *StreamServer) IsListening() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listener != nil && !s.closed
}

// Spectators returns the number of connected spectators
func (s *StreamServer) Spectators() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stop disconnects every spectator and shuts the listener down
func (s *StreamServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
	s.validator.Close()

	var err error
	if httpServer != nil {
		err = httpServer.Shutdown(ctx)
	}
	s.logger.Info(ctx, "stream server stopped")
	return err
}

// HandleWS upgrades a request to a spectator session
func (s *StreamServer) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := logging.WithCorrelationID(r.Context(), "")

	if err := s.reserve(); err != nil {
		if errors.Is(err, ErrServerFull) {
			s.logger.Warn(ctx, "rejecting spectator, server full", "max_spectators", s.env.MaxSpectators)
		}
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.release()
		s.logger.Error(ctx, "websocket upgrade failed", err)
		return
	}

	id := uuid.NewString()
	states, unsub := s.runner.Subscribe(snapshotBuffer)
	sess := &session{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		guard:  NewWriteGuard("spectator-"+id, s.env, s.logger),
		states: states,
		unsub:  unsub,
		done:   make(chan struct{}),
	}

	if !s.register(sess) {
		s.logger.Debug(ctx, "server stopped during upgrade", "session_id", id)
		sess.close()
		return
	}
	s.logger.Info(ctx, "spectator connected", "session_id", id, "remote", r.RemoteAddr)
	s.bus.Publish(event.NewSpectatorEvent(event.SpectatorJoined, s, id))

	s.enqueue(sess, ServerEnvelope{
		Type:     TypeWelcome,
		Session:  id,
		State:    s.runner.Snapshot(),
		ServerMS: time.Now().UnixMilli(),
	})

	go s.writePump(ctx, sess)
	s.readPump(ctx, sess)
}

// reserve claims a spectator slot ahead of the upgrade
func (s *StreamServer) reserve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	if len(s.sessions)+s.pending >= s.env.MaxSpectators {
		return ErrServerFull
	}
	s.pending++
	return nil
}

func (s *StreamServer) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
}

// register turns a reserved slot into a session. It returns false once Stop has run.
func (s *StreamServer) register(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.closed {
		return false
	}
	s.sessions[sess.id] = sess
	return true
}

func (s *StreamServer) unregister(sess *session) {
	s.mu.Lock()
	_, ok := s.sessions[sess.id]
	delete(s.sessions, sess.id)
	s.mu.Unlock()

	sess.close()
	if !ok {
		return
	}
	s.validator.Forget(sess.id)
	s.bus.Publish(event.NewSpectatorEvent(event.SpectatorLeft, s, sess.id))
}

func (sess *session) close() {
	sess.closeOnce.Do(func() {
		close(sess.done)
		sess.unsub()
		_ = sess.conn.Close()
	})
}

func (s *StreamServer) readPump(ctx context.Context, sess *session) {
	defer s.unregister(sess)

	sess.conn.SetReadLimit(validation.MaxMessageSize * 2)
	_ = sess.conn.SetReadDeadline(time.Now().Add(s.env.ReadTimeout))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(s.env.ReadTimeout))
	})

	for {
		_, msg, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Info(ctx, "spectator disconnected", "session_id", sess.id)
			} else {
				s.logger.Debug(ctx, "spectator read ended", "session_id", sess.id, "error", err)
			}
			return
		}
		_ = sess.conn.SetReadDeadline(time.Now().Add(s.env.ReadTimeout))

		in, err := s.validator.ValidateMessage(msg, sess.id)
		if err != nil {
			s.logger.Debug(ctx, "rejected spectator message", "session_id", sess.id, "error", err)
			s.enqueue(sess, ServerEnvelope{Type: TypeError, Message: err.Error()})
			continue
		}
		s.apply(sess, in)
	}
}

func (s *StreamServer) apply(sess *session, in *ClientEnvelope) {
	switch in.Type {
	case validation.TypeKeyDown:
		s.runner.KeyDown(in.Key)
	case validation.TypeKeyUp:
		s.runner.KeyUp(in.Key)
	case validation.TypeReset:
		s.runner.Reset()
	case validation.TypePing:
		s.enqueue(sess, ServerEnvelope{Type: TypePong, ServerMS: time.Now().UnixMilli()})
	}
}

// enqueue queues an envelope for the session's writer, dropping it if the queue is full
func (s *StreamServer) enqueue(sess *session, env ServerEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		s.logger.Error(context.Background(), "failed to marshal envelope", err, "type", env.Type)
		return
	}
	select {
	case sess.send <- payload:
	default:
	}
}

// writePump is the only goroutine writing to the connection.
func (s *StreamServer) writePump(ctx context.Context, sess *session) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		sess.close()
	}()

	for {
		var (
			messageType = websocket.TextMessage
			payload     []byte
		)

		select {
		case <-sess.done:
			return
		case payload = <-sess.send:
		case state, ok := <-sess.states:
			if !ok {
				return
			}
			data, err := json.Marshal(ServerEnvelope{Type: TypeState, State: state})
			if err != nil {
				s.logger.Error(ctx, "failed to marshal snapshot", err)
				continue
			}
			payload = data
		case <-ticker.C:
			messageType = websocket.PingMessage
			payload = []byte("keepalive")
		}

		err := sess.guard.Execute(ctx, func() error {
			_ = sess.conn.SetWriteDeadline(time.Now().Add(s.env.WriteTimeout))
			return sess.conn.WriteMessage(messageType, payload)
		})
		if err != nil && sess.guard.Tripped() {
			s.logger.Warn(ctx, "dropping spectator, writes keep failing", "session_id", sess.id)
			return
		}
	}
}
