// Package gateway implements the WebSocket RPC server that fronts the
// cron scheduler, device pairing, and status surfaces for every connected
// client (CLI, browser, paired channel bridge).
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
	"github.com/nextlevelbuilder/goclaw/internal/config"
	"github.com/nextlevelbuilder/goclaw/internal/cron"
	"github.com/nextlevelbuilder/goclaw/internal/pairing"
	"github.com/nextlevelbuilder/goclaw/internal/permissions"
	"github.com/nextlevelbuilder/goclaw/pkg/protocol"
)

// Server owns the WebSocket listener, the set of connected clients, and the
// collaborators every RPC method handler needs: the policy engine, the
// pairing service, and the cron facade.
type Server struct {
	cfg            *config.Config
	pairingService *pairing.Service
	policyEngine   *permissions.Engine
	cronFacade     *cron.Facade
	router         *MethodRouter
	rateLimiter    *RateLimiter
	events         *bus.MessageBus

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*Client
	seq     int64
}

// NewServer wires a Server around its collaborators. router handlers are
// registered by the caller after construction, once it has a *Server to
// close over (see cmd.gatewayCmd).
func NewServer(cfg *config.Config, pairingService *pairing.Service, cronFacade *cron.Facade) *Server {
	s := &Server{
		cfg:            cfg,
		pairingService: pairingService,
		policyEngine:   permissions.NewEngine(),
		cronFacade:     cronFacade,
		rateLimiter:    NewRateLimiter(600, 20),
		clients:        make(map[string]*Client),
		events:         bus.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.router = NewMethodRouter(s)
	return s
}

// Router exposes the method router so callers can register additional
// method groups (cron, pairing) before the server starts accepting
// connections.
func (s *Server) Router() *MethodRouter { return s.router }

// ServeHTTP upgrades a request to a WebSocket connection and runs the
// client's read/write pumps until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.rateLimiter.Allow(r.RemoteAddr) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	client := NewClient(conn, s)
	s.addClient(client)
	defer s.removeClient(client)

	client.Run(r.Context())
}

func (s *Server) addClient(c *Client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.events.Subscribe(c.id, func(ev bus.Event) {
		frame, ok := ev.Payload.(protocol.EventFrame)
		if !ok {
			return
		}
		c.SendEvent(frame)
	})
}

func (s *Server) removeClient(c *Client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	s.events.Unsubscribe(c.id)
}

// ClientCount returns the number of currently connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// BroadcastEvent pushes event/payload to every connected client, tagged with
// a monotonically increasing sequence number. Used by method handlers (cron
// add/update/remove/run, pairing request/approve) to notify every connected
// CLI/browser/bridge client without them having to poll. Delivery fans out
// through the server's own bus.MessageBus subscriber registry, which holds
// one subscription per connected client.
func (s *Server) BroadcastEvent(event string, payload interface{}) {
	s.mu.Lock()
	s.seq++
	frame := protocol.NewEvent(event, payload)
	frame.Seq = s.seq
	s.mu.Unlock()

	s.events.Broadcast(bus.Event{Name: event, Payload: *frame})
}

// ListenAndServe starts the HTTP server hosting the /ws upgrade endpoint.
// It blocks until ctx is canceled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)

	addr := s.cfg.Gateway.Host + ":" + strconv.Itoa(s.cfg.Gateway.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
