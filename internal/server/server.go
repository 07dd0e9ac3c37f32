package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ashwinsk01/overkillcah/internal/catalog"
	"github.com/ashwinsk01/overkillcah/internal/config"
	"github.com/ashwinsk01/overkillcah/internal/game/room"
	"github.com/ashwinsk01/overkillcah/internal/storage"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict in production deployments
	},
}

// Server is the websocket front door: it owns the connection set, the
// room registry and the optional leaderboard store.
type Server struct {
	config  *config.Config
	manager *room.Manager

	redis       *redis.Client
	leaderboard *storage.Leaderboard

	clients   map[string]*Client
	clientsMu sync.RWMutex

	handler    *Handler
	httpServer *http.Server

	// Caps concurrent websocket connections.
	semaphore chan struct{}
}

// NewServer wires the server together. Redis is optional: if it is
// disabled or unreachable, the game runs without a leaderboard.
func NewServer(cfg *config.Config, cat *catalog.Catalog) (*Server, error) {
	s := &Server{
		config:    cfg,
		clients:   make(map[string]*Client),
		semaphore: make(chan struct{}, cfg.Server.MaxConnections),
	}

	var results room.ResultRecorder
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Warn("redis unreachable, leaderboard disabled")
			_ = rdb.Close()
		} else {
			s.redis = rdb
			s.leaderboard = storage.NewLeaderboard(rdb)
			results = s.leaderboard
		}
	}

	rules := room.Rules{
		HandSize:     cfg.Game.HandSize,
		WinningScore: cfg.Game.WinningScore,
		MinPlayers:   cfg.Game.MinPlayers,
		ScoringDelay: cfg.Game.ScoringDelayDuration(),
	}
	s.manager = room.NewManager(cat, rules, cfg.Game.RoomTimeoutDuration(), results)
	s.handler = NewHandler(s.manager)

	return s, nil
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/leaderboard", s.handleLeaderboard)

	go s.monitorStats()

	logrus.WithFields(logrus.Fields{"addr": addr, "cpus": runtime.NumCPU()}).
		Info("🚀 server listening")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	select {
	case s.semaphore <- struct{}{}:
	default:
		logrus.WithField("remote", r.RemoteAddr).Warn("connection limit reached")
		http.Error(w, "Server Full", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		<-s.semaphore
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := NewClient(s, conn)
	s.registerClient(client)
	logrus.WithField("conn", client.ID).Info("✅ client connected")

	go client.ReadPump()
	go client.WritePump()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.leaderboard == nil {
		http.Error(w, "leaderboard disabled", http.StatusNotFound)
		return
	}

	entries, err := s.leaderboard.Top(r.Context(), 20)
	if err != nil {
		logrus.WithError(err).Error("leaderboard query failed")
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func (s *Server) registerClient(c *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[c.ID] = c
}

func (s *Server) unregisterClient(c *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if _, ok := s.clients[c.ID]; ok {
		delete(s.clients, c.ID)
		<-s.semaphore
		logrus.WithField("conn", c.ID).Info("❌ client disconnected")
	}
}

// OnlineCount reports the number of open connections.
func (s *Server) OnlineCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// monitorStats periodically logs process health.
func (s *Server) monitorStats() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		logrus.WithFields(logrus.Fields{
			"online":     s.OnlineCount(),
			"rooms":      s.manager.Count(),
			"games":      s.manager.ActiveGames(),
			"goroutines": runtime.NumGoroutine(),
			"alloc_mb":   fmt.Sprintf("%.2f", float64(m.Alloc)/1024/1024),
		}).Info("📊 stats")
	}
}

// Shutdown closes every client, the room registry and redis.
func (s *Server) Shutdown() {
	if games := s.manager.ActiveGames(); games > 0 {
		logrus.WithField("games", games).Warn("shutting down with games in progress")
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(ctx)
	}

	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.Unlock()

	s.manager.Close()

	if s.redis != nil {
		_ = s.redis.Close()
	}
	logrus.Info("server stopped")
}
