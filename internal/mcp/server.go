package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Constants for WebSocket timeouts and limits (based on Gorilla WebSocket examples).
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
	// Send buffer size
	sendChannelSize = 64

	shutdownTimeout = 15 * time.Second
)

// The default origin check applies: browsers on other origins are refused.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Server is the HTTP transport: a JSON API, a websocket for streaming calls
// and the metrics endpoint.
type Server struct {
	dispatcher *Dispatcher
	handlers   *Handlers
	logger     *zap.Logger
	httpServer *http.Server

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	wsWG    sync.WaitGroup
}

// NewServer builds the HTTP transport over d.
func NewServer(d *Dispatcher, logger *zap.Logger) *Server {
	logger = logger.Named("http")
	return &Server{
		dispatcher: d,
		handlers:   NewHandlers(logger, d),
		logger:     logger,
		clients:    map[*wsClient]struct{}{},
	}
}

// Router returns the complete route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// The websocket route stays outside the request logger; a hijacked
	// connection has no meaningful status or duration.
	r.Get("/api/v1/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(s.requestLogger)
		s.handlers.RegisterRoutes(r)
	})
	return r
}

// ListenAndServe binds addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("mcp: listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully and closes open websockets.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("HTTP transport starting.", zap.String("address", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP transport.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.closeClients()
	s.wsWG.Wait()
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return err
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.dispatcher.Metrics().httpRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		s.logger.Debug("HTTP request.",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// wsClient represents a single active WebSocket connection.
type wsClient struct {
	server *Server
	conn   *websocket.Conn
	send   chan WSMessage
	ctx    context.Context
	cancel context.CancelFunc
	// calls tracks tool calls started from this connection.
	calls sync.WaitGroup
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection to WebSocket", zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &wsClient{
		server: s,
		conn:   conn,
		send:   make(chan WSMessage, sendChannelSize),
		ctx:    ctx,
		cancel: cancel,
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.wsWG.Add(1)
	s.mu.Unlock()
	s.dispatcher.Metrics().wsClients.Inc()
	s.logger.Info("WebSocket connection established.", zap.String("remoteAddr", r.RemoteAddr))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()
	c.readPump()

	// Reader gone: cancel calls, let them report, then stop the writer.
	c.cancel()
	c.calls.Wait()
	close(c.send)
	<-writerDone

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	s.dispatcher.Metrics().wsClients.Dec()
	s.wsWG.Done()
	s.logger.Info("WebSocket connection closed.", zap.String("remoteAddr", r.RemoteAddr))
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.cancel()
		c.conn.Close()
	}
}

// readPump reads frames until the peer goes away or the read deadline lapses.
func (c *wsClient) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && c.ctx.Err() == nil {
				c.server.logger.Warn("WebSocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		c.processMessage(msg)
	}
}

// writePump owns every write to the connection and keeps it alive with pings.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.server.logger.Debug("Error writing to WebSocket", zap.Error(err))
				c.cancel()
				c.conn.Close()
				// Keep draining so producers never block.
				for range c.send {
				}
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				c.conn.Close()
				for range c.send {
				}
				return
			}
		}
	}
}

func (c *wsClient) processMessage(msg WSMessage) {
	switch msg.Type {
	case MsgTypeToolCall:
		if msg.RequestID == "" {
			c.sendError(msg.RequestID, "ToolCall requires a request_id.")
			return
		}
		name, _ := msg.Data["tool"].(string)
		name = strings.TrimSpace(name)
		if name == "" || !c.server.dispatcher.Has(name) {
			c.sendError(msg.RequestID, fmt.Sprintf("Unknown tool: %q", name))
			return
		}
		var args map[string]any
		if raw, present := msg.Data["arguments"]; present && raw != nil {
			var ok bool
			if args, ok = raw.(map[string]any); !ok {
				c.sendError(msg.RequestID, "arguments must be an object.")
				return
			}
		}
		c.sendMessage(WSMessage{Type: MsgTypeStatusUpdate, RequestID: msg.RequestID, Data: map[string]any{"status": "queued", "tool": name}})

		c.calls.Add(1)
		go func() {
			defer c.calls.Done()
			out := c.server.dispatcher.Call(c.ctx, name, args)
			c.sendMessage(WSMessage{Type: MsgTypeToolResult, RequestID: msg.RequestID, Result: &out})
		}()
	default:
		c.sendError(msg.RequestID, fmt.Sprintf("Unknown or unsupported message type: %s", msg.Type))
	}
}

// sendMessage queues a frame. A full buffer means the client stopped
// reading; the frame is dropped.
func (c *wsClient) sendMessage(msg WSMessage) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	select {
	case c.send <- msg:
	default:
		c.server.logger.Error("WebSocket send buffer full, dropping message.",
			zap.String("requestID", msg.RequestID), zap.String("type", string(msg.Type)))
	}
}

func (c *wsClient) sendError(requestID, errorMessage string) {
	c.sendMessage(WSMessage{Type: MsgTypeSystemError, RequestID: requestID, Data: map[string]any{"error": errorMessage}})
}
