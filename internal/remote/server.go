// Package remote exposes the download manager to external controllers
// over a local WebSocket. Clients send JSON commands and receive acks
// plus a live feed of application events.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/remedia-app/remedia/internal/events"
	"github.com/remedia-app/remedia/internal/host"
)

// DefaultAddr is the loopback address remote control binds by default.
const DefaultAddr = "127.0.0.1:17814"

// Commands is the application surface a remote client can drive.
type Commands interface {
	AddURL(url string) error
	StartDownloads()
	CancelDownloads(ctx context.Context)
	ClearList()
	SetDownloadDir(path string) error
	QueueStatus(ctx context.Context) (host.QueueStats, error)
}

// command is one inbound client message.
type command struct {
	Action string          `json:"action"`
	URL    string          `json:"url,omitempty"`
	Path   string          `json:"path,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// envelope is the outbound event frame shared with the in-process event
// names, so a remote client sees the same stream the UI does.
type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

type client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// enqueue hands a frame to the writer goroutine, dropping it when the
// client is closed or its buffer is full. Commands can race teardown, so
// the closed flag is checked under the same lock close holds.
func (c *client) enqueue(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// close stops the writer goroutine. Safe to call more than once and
// concurrently with enqueue.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Server accepts WebSocket connections and routes their commands.
type Server struct {
	commands Commands
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}

	httpSrv *http.Server
}

// NewServer builds a server around the given command surface.
func NewServer(commands Commands, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		commands: commands,
		logger:   logger.With("component", "remote"),
		clients:  make(map[*client]struct{}),
	}
}

// Handler returns the WebSocket endpoint handler.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleWS)
}

// ListenAndServe binds addr and serves until Shutdown. It returns once
// the listener is closed.
func (s *Server) ListenAndServe(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("remote listener on %s: %w", addr, err)
	}
	s.logger.Info("remote control listening", "addr", ln.Addr().String())

	s.httpSrv = &http.Server{Handler: s.Handler()}
	if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes active clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.clients {
		c.close()
		delete(s.clients, c)
	}
	s.mu.Unlock()

	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Broadcast pushes an event envelope to every connected client. Slow
// clients drop frames rather than stall the application.
func (s *Server) Broadcast(event string, payload any) {
	msg, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.enqueue(msg)
	}
}

// broadcastOthers mirrors an executed command to every client except its
// sender, keeping multiple controllers in sync. The sender already has
// its ack and echo.
func (s *Server) broadcastOthers(sender *client, event string, payload any) {
	msg, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if c == sender {
			continue
		}
		c.enqueue(msg)
	}
}

// ClientCount reports the number of connected clients. Event producers
// may skip serialization work when it is zero.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	s.addClient(c)
	s.logger.Info("remote client connected", "addr", r.RemoteAddr)

	ctx := r.Context()

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range c.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	c.sendJSON(helloEnvelope())

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		if typ != websocket.MessageText {
			continue
		}
		s.dispatch(ctx, c, data)
	}

	s.removeClient(c)
	s.logger.Info("remote client disconnected", "addr", r.RemoteAddr)
}

func (s *Server) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		c.close()
		delete(s.clients, c)
	}
}

func (c *client) sendJSON(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.enqueue(msg)
}

// ack is the command response frame.
type ack struct {
	OK     bool   `json:"ok"`
	Action string `json:"action,omitempty"`
	Error  string `json:"error,omitempty"`

	// status fields, populated by the status action only
	Queued *int `json:"queued,omitempty"`
	Active *int `json:"active,omitempty"`
	Max    *int `json:"max,omitempty"`
}

func helloEnvelope() envelope {
	return envelope{
		Event: "remote-hello",
		Payload: map[string]any{
			"pid": os.Getpid(),
			"ts":  time.Now().UnixMilli(),
		},
	}
}

// dispatch executes one command and replies with an ack; successful
// commands also echo a remote-recv event so harnesses can trace what
// arrived.
func (s *Server) dispatch(ctx context.Context, c *client, data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.sendJSON(ack{OK: false, Error: fmt.Sprintf("bad command: %v", err)})
		return
	}

	switch cmd.Action {
	case "addUrl":
		if cmd.URL == "" {
			c.sendJSON(ack{OK: false, Action: cmd.Action, Error: "url required"})
			return
		}
		if err := s.commands.AddURL(cmd.URL); err != nil {
			c.sendJSON(ack{OK: false, Action: cmd.Action, Error: err.Error()})
			return
		}
		c.sendJSON(ack{OK: true, Action: cmd.Action})
		c.sendJSON(envelope{Event: "remote-recv", Payload: "addUrl " + cmd.URL})
		s.broadcastOthers(c, events.RemoteAddURL, cmd.URL)

	case "startDownloads":
		s.commands.StartDownloads()
		c.sendJSON(ack{OK: true, Action: cmd.Action})
		c.sendJSON(envelope{Event: "remote-recv", Payload: "startDownloads"})
		s.broadcastOthers(c, events.RemoteStart, nil)

	case "cancelAll":
		s.commands.CancelDownloads(ctx)
		c.sendJSON(ack{OK: true, Action: cmd.Action})
		c.sendJSON(envelope{Event: "remote-recv", Payload: "cancelAll"})
		s.broadcastOthers(c, events.RemoteCancel, nil)

	case "clearList":
		s.commands.ClearList()
		c.sendJSON(ack{OK: true, Action: cmd.Action})
		c.sendJSON(envelope{Event: "remote-recv", Payload: "clearList"})
		s.broadcastOthers(c, events.RemoteClearList, nil)

	case "setDownloadDir":
		path := cmd.Path
		if path == "" {
			path = cmd.URL
		}
		if path == "" {
			c.sendJSON(ack{OK: false, Action: cmd.Action, Error: "path required"})
			return
		}
		if err := s.commands.SetDownloadDir(path); err != nil {
			c.sendJSON(ack{OK: false, Action: cmd.Action, Error: err.Error()})
			return
		}
		c.sendJSON(ack{OK: true, Action: cmd.Action})
		c.sendJSON(envelope{Event: "remote-recv", Payload: "setDownloadDir " + path})
		s.broadcastOthers(c, events.RemoteSetDownloadDir, path)

	case "status":
		stats, err := s.commands.QueueStatus(ctx)
		if err != nil {
			c.sendJSON(ack{OK: false, Action: cmd.Action, Error: err.Error()})
			return
		}
		c.sendJSON(ack{
			OK:     true,
			Action: cmd.Action,
			Queued: &stats.Queued,
			Active: &stats.Active,
			Max:    &stats.MaxConcurrent,
		})
		c.sendJSON(envelope{Event: "remote-recv", Payload: "status"})

	case "debugEcho":
		var payload any
		if len(cmd.Data) > 0 {
			payload = json.RawMessage(cmd.Data)
		}
		c.sendJSON(envelope{Event: "debug-echo", Payload: payload})

	default:
		c.sendJSON(ack{OK: false, Error: "unknown action"})
	}
}
