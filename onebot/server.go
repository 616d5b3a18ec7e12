// Package onebot implements the inbound OneBot WebSocket server: remote QQ
// and WeChat adapters dial in, report events, and answer API calls placed
// against their endpoint.
package onebot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/gliderlab/teleporter/config"
	"github.com/gliderlab/teleporter/onebot/protocol"
)

const (
	// bufferSize is the per-connection outbound request queue depth.
	bufferSize = 1024
	// apiTimeout bounds how long CallAPI waits for a matching response.
	apiTimeout = 120 * time.Second

	// wsMaxMessageSize caps the largest inbound OneBot WebSocket message the
	// server will accept before closing the connection.
	wsMaxMessageSize = 512 * 1024 * 1024
)

// Event pairs a decoded protocol Event with the endpoint that reported it.
type Event struct {
	Endpoint protocol.Endpoint
	Raw      *protocol.Event
}

type pendingCall struct {
	action protocol.Action
	ret    chan callResult
}

type callResult struct {
	resp *protocol.Response
	err  error
}

type connection struct {
	endpoint protocol.Endpoint
	send     chan protocol.Request
}

// Server is the OneBot WebSocket listener. It tracks one connection per
// endpoint and a table of in-flight API calls keyed by echo.
type Server struct {
	addr   string
	bearer string // must match the Authorization header byte-for-byte; "" admits only handshakes without one

	mu    sync.Mutex
	conns map[protocol.Endpoint]*connection

	pendingMu sync.Mutex
	pending   map[string]pendingCall

	events chan Event
}

// NewServer builds a Server from configuration; it does not start listening.
func NewServer(cfg config.OnebotConfig) *Server {
	bearer := ""
	if cfg.Token != "" {
		bearer = "Bearer " + cfg.Token
	}
	return &Server{
		addr:    cfg.Addr,
		bearer:  bearer,
		conns:   make(map[protocol.Endpoint]*connection),
		pending: make(map[string]pendingCall),
		events:  make(chan Event, bufferSize),
	}
}

// Events returns the channel of events reported by any connected endpoint.
func (s *Server) Events() <-chan Event { return s.events }

// Run binds the listener and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind onebot listener: %w", err)
	}
	log.Printf("[onebot] listening on %s", s.addr)

	srv := &http.Server{Handler: http.HandlerFunc(s.handleUpgrade)}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(listener) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("onebot server: %w", err)
		}
		return nil
	}
}

// handleUpgrade validates the handshake headers (bearer token, X-Self-ID,
// User-Agent), infers the connecting platform from the User-Agent, and
// upgrades to a WebSocket on success.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	auth := r.Header.Get("Authorization")
	wantAuth := s.bearer
	if auth != wantAuth {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	selfID := r.Header.Get("X-Self-ID")
	userAgent := r.Header.Get("User-Agent")
	if selfID == "" || userAgent == "" {
		http.Error(w, "missing X-Self-ID or User-Agent", http.StatusBadRequest)
		return
	}

	platform := inferPlatform(userAgent)
	endpoint := protocol.Endpoint{Platform: platform, ID: selfID}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		log.Printf("[onebot] accept error: %v", err)
		return
	}
	conn.SetReadLimit(wsMaxMessageSize)

	log.Printf("[onebot] new client (%s) connection: %s", endpoint, r.RemoteAddr)
	s.serveConnection(endpoint, conn)
}

// inferPlatform maps a reporting adapter's User-Agent to a Platform,
// distinguishing LLOneBot (QQ) from WeChat adapters and defaulting to QQ
// for anything else.
func inferPlatform(userAgent string) protocol.Platform {
	switch {
	case hasPrefix(userAgent, "LLOneBot"):
		return protocol.PlatformQQ
	case hasPrefix(userAgent, "WeChat"):
		return protocol.PlatformWeChat
	default:
		return protocol.PlatformQQ
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func (s *Server) serveConnection(endpoint protocol.Endpoint, conn *websocket.Conn) {
	c := &connection{endpoint: endpoint, send: make(chan protocol.Request, bufferSize)}

	s.mu.Lock()
	s.conns[endpoint] = c
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeMu sync.Mutex
	go s.writeLoop(ctx, conn, c, &writeMu)
	s.readLoop(ctx, conn, endpoint)

	s.mu.Lock()
	if s.conns[endpoint] == c {
		delete(s.conns, endpoint)
	}
	s.mu.Unlock()
	conn.Close(websocket.StatusNormalClosure, "")

	s.emitDisconnect(endpoint)
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, c *connection, writeMu *sync.Mutex) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-c.send:
			if !ok {
				return
			}
			data, err := json.Marshal(req)
			if err != nil {
				log.Printf("[onebot] failed to serialize request: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			writeMu.Lock()
			err = conn.Write(writeCtx, websocket.MessageText, data)
			writeMu.Unlock()
			cancel()
			if err != nil {
				log.Printf("[onebot] failed to write to %s: %v", c.endpoint, err)
				return
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, endpoint protocol.Endpoint) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Printf("[onebot] client (%s) connection error: %v", endpoint, err)
			return
		}
		s.handleMessage(endpoint, data)
	}
}

func (s *Server) handleMessage(endpoint protocol.Endpoint, data []byte) {
	var head struct {
		PostType *protocol.PostType `json:"post_type"`
		Echo     *string            `json:"echo"`
		Action   *protocol.Action   `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		log.Printf("[onebot] failed to sniff message from %s: %v\n%s", endpoint, err, data)
		return
	}

	switch {
	case head.PostType != nil:
		var ev protocol.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("[onebot] failed to decode event from %s: %v", endpoint, err)
			return
		}
		select {
		case s.events <- Event{Endpoint: endpoint, Raw: &ev}:
		default:
			log.Printf("[onebot] event channel full, dropping event from %s", endpoint)
		}
	case head.Echo != nil:
		s.pendingMu.Lock()
		call, ok := s.pending[*head.Echo]
		if ok {
			delete(s.pending, *head.Echo)
		}
		s.pendingMu.Unlock()
		if !ok {
			return
		}
		resp, err := protocol.DecodeResponse(data, call.action)
		call.ret <- callResult{resp: resp, err: err}
	case head.Action != nil:
		log.Printf("[onebot] unexpected request from %s: %s", endpoint, data)
	default:
		log.Printf("[onebot] unrecognized message shape from %s: %s", endpoint, data)
	}
}

// emitDisconnect synthesizes a lifecycle/disconnect event, matching the
// original's behavior when the read loop errors out.
func (s *Server) emitDisconnect(endpoint protocol.Endpoint) {
	ev := &protocol.Event{
		PostType: protocol.PostMetaEvent,
		Meta: &protocol.MetaEvent{
			Type: protocol.MetaLifecycle,
			Lifecycle: &protocol.LifecycleEvent{
				Time:    time.Now().Unix(),
				SelfID:  endpoint.ID,
				SubType: "disconnect",
			},
		},
	}
	select {
	case s.events <- Event{Endpoint: endpoint, Raw: ev}:
	default:
		log.Printf("[onebot] event channel full, dropping disconnect event from %s", endpoint)
	}
}

// CallAPI issues a Request against endpoint and waits for the correlated
// Response, timing out after apiTimeout. The pending-call entry is
// registered before the request is handed to the connection's writer so a
// response racing in immediately after the write always finds a match.
func (s *Server) CallAPI(ctx context.Context, endpoint protocol.Endpoint, req protocol.Request) (*protocol.Response, error) {
	s.mu.Lock()
	c, ok := s.conns[endpoint]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("client (%s) not found", endpoint)
	}

	ret := make(chan callResult, 1)
	s.pendingMu.Lock()
	s.pending[req.Echo] = pendingCall{action: req.Action, ret: ret}
	s.pendingMu.Unlock()

	select {
	case c.send <- req:
	default:
		s.pendingMu.Lock()
		delete(s.pending, req.Echo)
		s.pendingMu.Unlock()
		return nil, fmt.Errorf("client (%s) send queue full", endpoint)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	select {
	case result := <-ret:
		return result.resp, result.err
	case <-timeoutCtx.Done():
		s.pendingMu.Lock()
		delete(s.pending, req.Echo)
		s.pendingMu.Unlock()
		return nil, fmt.Errorf("api call to %s timed out: %w", endpoint, timeoutCtx.Err())
	}
}

// Connected reports whether an endpoint currently has a live connection.
func (s *Server) Connected(endpoint protocol.Endpoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.conns[endpoint]
	return ok
}
