// Package dashboard provides the HTTP read side of workdash.
//
// The server exposes the cached work items as JSON, a manual refresh
// endpoint that runs the sync reconciler, and a WebSocket endpoint that
// notifies connected clients when a refresh completes so they can reload.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	gosync "sync"
	"time"

	"github.com/coder/websocket"

	"workdash/internal/cache"
	"workdash/internal/sync"
	"workdash/internal/workitem"
)

// MessageType defines the type of a dashboard WebSocket message.
type MessageType string

const (
	// MessageTypeSyncComplete indicates a reconciliation pass finished.
	MessageTypeSyncComplete MessageType = "sync_complete"

	// MessageTypeStats indicates updated cache statistics.
	MessageTypeStats MessageType = "stats"
)

// Message is a dashboard broadcast message.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// SyncCompleteData describes a finished reconciliation pass.
type SyncCompleteData struct {
	Remote      int           `json:"remote"`
	Deleted     int           `json:"deleted"`
	Fetched     int           `json:"fetched"`
	FetchFailed int           `json:"fetch_failed"`
	NothingNew  bool          `json:"nothing_new"`
	Duration    time.Duration `json:"duration"`
}

// StatsData summarizes the cache contents.
type StatsData struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"by_state"`
	Done    int            `json:"done"`
	Open    int            `json:"open"`
}

// Config holds dashboard server configuration.
type Config struct {
	// Port to listen on (0 picks a free port).
	Port int

	// Logger for server activity (default: stderr logger).
	Logger *log.Logger
}

// Server serves the dashboard API and WebSocket notifications.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server

	store      *cache.Cache
	reconciler sync.Reconciler

	clients   map[*websocket.Conn]bool
	clientsMu gosync.RWMutex

	// syncMu serializes manual refresh requests; the reconciler is a
	// synchronous single-flight operation.
	syncMu gosync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup

	logger *log.Logger
}

// NewServer creates a dashboard server over the given cache.
//
// The reconciler may be nil, in which case POST /api/sync responds with
// 503 (read-only mode).
func NewServer(store *cache.Cache, reconciler sync.Reconciler, config *Config) *Server {
	if config == nil {
		config = &Config{Port: 8080}
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[dashboard] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:       fmt.Sprintf(":%d", config.Port),
		store:      store,
		reconciler: reconciler,
		clients:    make(map[*websocket.Conn]bool),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
}

// Start begins listening and serving requests.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/api/items", s.handleItems)
	mux.HandleFunc("/api/sync", s.handleSync)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: a manual sync blocks until the remote
		// round-trips complete.
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()
	s.logger.Println("Dashboard stopped")
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// handleItems returns cached work items, optionally filtered by state or
// assignee query parameters.
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListItemsContext(r.Context())
	if err != nil {
		s.logger.Printf("Failed to list items: %v", err)
		http.Error(w, "failed to read cache", http.StatusInternalServerError)
		return
	}

	state := r.URL.Query().Get("state")
	assignee := r.URL.Query().Get("assignee")
	items = filterItems(items, state, assignee)

	writeJSON(w, items)
}

// handleSync runs one reconciliation pass and broadcasts the outcome.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if s.reconciler == nil {
		http.Error(w, "sync not configured", http.StatusServiceUnavailable)
		return
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	start := time.Now()
	result, err := s.reconciler.Reconcile(r.Context(), sync.Options{
		ForceRefetch: r.URL.Query().Get("full") == "true",
	})
	if err != nil {
		s.logger.Printf("Sync failed: %v", err)
		http.Error(w, fmt.Sprintf("sync failed: %v", err), http.StatusBadGateway)
		return
	}

	s.broadcastSyncComplete(result, time.Since(start))
	s.broadcastStats(result.Items)

	writeJSON(w, result)
}

// handleStats returns cache statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListItemsContext(r.Context())
	if err != nil {
		s.logger.Printf("Failed to list items: %v", err)
		http.Error(w, "failed to read cache", http.StatusInternalServerError)
		return
	}
	writeJSON(w, computeStats(items))
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountItemsContext(r.Context())
	status := "ok"
	if err != nil {
		status = "degraded"
	}
	writeJSON(w, map[string]any{
		"status":  status,
		"items":   count,
		"clients": s.ClientCount(),
	})
}

// handleWebSocket upgrades the connection and registers the client.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Single-user local tool
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	total := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", total)

	// Send current stats as the welcome message.
	if items, err := s.store.ListItems(); err == nil {
		if data, err := json.Marshal(computeStats(items)); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = conn.Write(ctx, websocket.MessageText, mustMarshalMessage(MessageTypeStats, data))
			cancel()
		}
	}

	go s.readLoop(conn)
}

// readLoop keeps the connection alive and detects disconnects. Client
// messages are not processed.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		total := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", total)
		return
	}
	s.clientsMu.Unlock()
}

// broadcast sends a message to all connected clients.
func (s *Server) broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Printf("Failed to marshal message: %v", err)
		return
	}

	s.clientsMu.RLock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for conn := range s.clients {
		conns = append(conns, conn)
	}
	s.clientsMu.RUnlock()

	for _, conn := range conns {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := conn.Write(ctx, websocket.MessageText, data)
		cancel()

		if err != nil {
			s.logger.Printf("Failed to send to client: %v", err)
			s.removeClient(conn)
		}
	}
}

func (s *Server) broadcastSyncComplete(result *sync.Result, elapsed time.Duration) {
	data, err := json.Marshal(SyncCompleteData{
		Remote:      result.Remote,
		Deleted:     result.Deleted,
		Fetched:     result.Fetched,
		FetchFailed: result.FetchFailed,
		NothingNew:  result.NothingNew,
		Duration:    elapsed,
	})
	if err != nil {
		s.logger.Printf("Failed to marshal sync data: %v", err)
		return
	}
	s.broadcast(Message{Type: MessageTypeSyncComplete, Data: data})
}

func (s *Server) broadcastStats(items []*workitem.WorkItem) {
	data, err := json.Marshal(computeStats(items))
	if err != nil {
		s.logger.Printf("Failed to marshal stats: %v", err)
		return
	}
	s.broadcast(Message{Type: MessageTypeStats, Data: data})
}

// computeStats summarizes items the way the dashboard splits them:
// "Done" versus everything else.
func computeStats(items []*workitem.WorkItem) StatsData {
	stats := StatsData{ByState: make(map[string]int)}
	for _, item := range items {
		stats.Total++
		stats.ByState[item.State]++
		if item.State == "Done" {
			stats.Done++
		} else {
			stats.Open++
		}
	}
	return stats
}

// filterItems applies the dashboard's state/assignee filters.
func filterItems(items []*workitem.WorkItem, state, assignee string) []*workitem.WorkItem {
	if state == "" && assignee == "" {
		return items
	}
	filtered := make([]*workitem.WorkItem, 0, len(items))
	for _, item := range items {
		if state != "" && item.State != state {
			continue
		}
		if assignee != "" && item.AssignedTo != assignee {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func mustMarshalMessage(typ MessageType, data json.RawMessage) []byte {
	b, _ := json.Marshal(Message{Type: typ, Timestamp: time.Now(), Data: data})
	return b
}
