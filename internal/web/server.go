package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"image-compress-go/internal/config"
	"image-compress-go/internal/metadata"
	"image-compress-go/internal/statistics"
	"image-compress-go/internal/workflow"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// maxUploadBytes bounds the multipart form kept in memory per selection.
const maxUploadBytes = 64 << 20

// Server exposes the compression workflow over a local HTTP surface and
// pushes state changes to websocket clients. It is the invoking surface of
// the workflow and therefore filters uploads by image MIME type before
// selection.
type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	ctrl       *workflow.Controller
	inspector  *metadata.ImageInspector
	stats      *statistics.Statistics
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.RWMutex
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewServer wires the workflow controller into the HTTP surface and registers
// itself as the controller's listener.
func NewServer(cfg *config.Config, log *logrus.Logger, ctrl *workflow.Controller, inspector *metadata.ImageInspector, stats *statistics.Statistics) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		ctrl:      ctrl,
		inspector: inspector,
		stats:     stats,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tool, all origins accepted
			},
		},
	}

	s.setupRoutes()
	ctrl.SetListener(s)
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/select", s.handleSelect).Methods("POST")
	api.HandleFunc("/options", s.handleGetOptions).Methods("GET")
	api.HandleFunc("/options", s.handleSetOptions).Methods("PUT")
	api.HandleFunc("/compress", s.handleCompress).Methods("POST")
	api.HandleFunc("/download", s.handleDownload).Methods("POST")
	api.HandleFunc("/preview", s.handlePreview).Methods("GET")
	api.HandleFunc("/methods", s.handleMethods).Methods("GET")
	api.HandleFunc("/statistics", s.handleStatistics).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting web server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Router returns the HTTP handler, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// WorkflowChanged implements workflow.Listener by broadcasting the snapshot
// to all connected websocket clients.
func (s *Server) WorkflowChanged(snapshot workflow.Snapshot) {
	s.broadcastWSMessage("workflow_changed", snapshot)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.ctrl.GetSnapshot(),
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, "Invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, "Field 'image' is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !isImageUpload(header.Header.Get("Content-Type"), header.Filename) {
		s.writeError(w, "Only image uploads are accepted", http.StatusUnsupportedMediaType)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	if err := s.ctrl.Select(header.Filename, data); err != nil {
		if errors.Is(err, metadata.ErrNotImage) {
			s.writeError(w, "Payload is not a decodable image", http.StatusUnsupportedMediaType)
			return
		}
		s.writeError(w, fmt.Sprintf("Selection failed: %v", err), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "File selected",
		Data:    s.ctrl.GetSnapshot(),
	})
}

func (s *Server) handleGetOptions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.ctrl.Options(),
	})
}

func (s *Server) handleSetOptions(w http.ResponseWriter, r *http.Request) {
	var opts workflow.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.ctrl.SetOptions(opts); err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.ctrl.Options(),
	})
}

func (s *Server) handleCompress(w http.ResponseWriter, r *http.Request) {
	// The controller is the authority on these, but answering the obvious
	// cases here gives the caller a status code instead of a ws event.
	snap := s.ctrl.GetSnapshot()
	if snap.File == nil {
		s.writeError(w, "No file selected", http.StatusBadRequest)
		return
	}
	if snap.State == workflow.StateCompressing.String() {
		s.writeError(w, "Compression already in progress", http.StatusConflict)
		return
	}

	go func() {
		if _, err := s.ctrl.Compress(context.Background()); err != nil {
			s.log.Debugf("Compression finished with error: %v", err)
		}
	}()

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Compression started",
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	location, err := s.ctrl.Download(r.Context())
	if err != nil {
		if errors.Is(err, workflow.ErrNoResult) {
			s.writeError(w, "No compression result to download", http.StatusBadRequest)
			return
		}
		s.writeError(w, "Download failed", http.StatusBadGateway)
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Artifact saved",
		Data:    map[string]string{"location": location},
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	_, data, ok := s.ctrl.SourceData()
	if !ok {
		s.writeError(w, "No file selected", http.StatusNotFound)
		return
	}

	width := queryInt(r, "w", 480)
	height := queryInt(r, "h", 480)

	thumb, err := s.inspector.Preview(data, width, height)
	if err != nil {
		s.writeError(w, "Preview unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(thumb)
}

func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    config.GetAvailableMethods(),
	})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, APIResponse{
		Success: true,
		Data:    s.stats.GetSnapshot(),
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	// Push the current snapshot so late joiners see the live state.
	initial, err := json.Marshal(WSMessage{Type: "workflow_changed", Data: s.ctrl.GetSnapshot()})
	if err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, initial)
	}

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	message := WSMessage{
		Type: messageType,
		Data: data,
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()

	for conn := range s.wsClients {
		err := conn.WriteMessage(websocket.TextMessage, msgBytes)
		if err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			go func(c *websocket.Conn) {
				s.wsMutex.Lock()
				delete(s.wsClients, c)
				s.wsMutex.Unlock()
				c.Close()
			}(conn)
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}

// isImageUpload filters by the declared MIME type, falling back to the file
// extension when the client sent a generic content type.
func isImageUpload(contentType, fileName string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	if contentType != "" && contentType != "application/octet-stream" {
		return false
	}

	lower := strings.ToLower(fileName)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".tif", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
