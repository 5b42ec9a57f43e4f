package server

import (
	"embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"vidlink/internal/signaling"
)

//go:embed static
var staticFS embed.FS

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024, // 64 KB
	WriteBufferSize: 64 * 1024, // 64 KB

	// We need to check the origin, but for development, we can allow all.
	// In production, you'd check r.Header.Get("Origin") against your frontend's domain
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all connections for now
	},
}

// CreateRoomResponse is the body of POST /api/create-room.
type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
	WsURL  string `json:"ws_url"`
}

// RoomStatus is the body of GET /api/room/{room_id}/status.
type RoomStatus struct {
	RoomID    string `json:"room_id"`
	PeerCount int    `json:"peer_count"`
	Available bool   `json:"available"`
}

// Server owns the HTTP surface over the signaling registry.
type Server struct {
	registry *signaling.Registry
	roomPage string
}

// New builds the server around a registry.
func New(registry *signaling.Registry) *Server {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		// The template is compiled into the binary; missing means a
		// broken build.
		panic(err)
	}
	return &Server{
		registry: registry,
		roomPage: string(page),
	}
}

// Handler assembles the route table wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("POST /api/create-room", s.handleCreateRoom)
	mux.HandleFunc("GET /api/room/{room_id}/status", s.handleRoomStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Room pages
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /room/{room_id}", s.handleRoomPage)

	// WebSocket endpoint
	mux.HandleFunc("GET /ws/{room_id}", s.handleWs)

	// Static assets (JS, CSS)
	mux.Handle("GET /static/", http.FileServerFS(staticFS))

	return requestLogger(cors(mux))
}

// handleCreateRoom mints a fresh room and returns its websocket URL.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	roomID := uuid.NewString()
	s.registry.CreateRoom(roomID)

	writeJSON(w, CreateRoomResponse{
		RoomID: roomID,
		WsURL:  "/ws/" + roomID,
	})
}

// handleRoomStatus reports occupancy; unknown rooms read as empty.
func (s *Server) handleRoomStatus(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	peerCount := s.registry.PeerCount(roomID)

	writeJSON(w, RoomStatus{
		RoomID:    roomID,
		PeerCount: peerCount,
		Available: peerCount < signaling.MaxPeersPerRoom,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

// handleIndex creates a room and redirects the browser into it.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	roomID := uuid.NewString()
	s.registry.CreateRoom(roomID)

	http.Redirect(w, r, "/room/"+roomID, http.StatusFound)
}

// handleRoomPage serves the client page with the room id substituted in.
func (s *Server) handleRoomPage(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	if _, err := uuid.Parse(roomID); err != nil {
		http.Error(w, "Invalid room ID format", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(strings.ReplaceAll(s.roomPage, "{{ROOM_ID}}", roomID)))
}

// handleWs upgrades the connection and hands it to the signaling driver.
func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("room_id")
	if _, err := uuid.Parse(roomID); err != nil {
		http.Error(w, "Invalid room ID", http.StatusBadRequest)
		return
	}

	slog.Info("websocket upgrade request", "room_id", roomID)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade connection", "error", err)
		return
	}

	signaling.NewClient(s.registry, conn, roomID).Run()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// requestLogger traces every request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("request", "method", r.Method, "url", r.URL.Path, "duration", time.Since(start))
	})
}

// cors applies a permissive CORS policy.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
