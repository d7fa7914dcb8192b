package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/gmarchetti/parley/internal/config"
	"github.com/gmarchetti/parley/internal/observability"
	"github.com/gmarchetti/parley/internal/protocol"
	"github.com/gmarchetti/parley/internal/provider"
	"github.com/gmarchetti/parley/internal/session"
	"github.com/gmarchetti/parley/internal/store"
)

// ConnectionRunner drives the relay protocol for one websocket connection.
type ConnectionRunner interface {
	RunConnection(ctx context.Context, s *session.Session, inbound <-chan protocol.ChatIntent, outbound chan<- any) error
}

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	relay    ConnectionRunner
	store    store.Store
	adapter  provider.Adapter
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, relay ConnectionRunner, st store.Store, adapter provider.Adapter, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		relay:    relay,
		store:    st,
		adapter:  adapter,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot drive a user's chat
				// session if the relay is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/ws", s.handleWS)
	r.Get("/api/messages", s.handleListMessages)
	r.Delete("/api/messages", s.handleClearMessages)
	r.Post("/api/transcribe", s.handleTranscribe)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"active_connections": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.relay == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "relay not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sess := s.sessions.Register(r.RemoteAddr)
	s.metrics.ConnectionEvents.WithLabelValues("connected").Inc()
	s.metrics.ActiveConnections.Set(float64(s.sessions.ActiveCount()))
	defer func() {
		s.sessions.Unregister(sess.ID)
		s.metrics.ConnectionEvents.WithLabelValues("disconnected").Inc()
		s.metrics.ActiveConnections.Set(float64(s.sessions.ActiveCount()))
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan protocol.ChatIntent, 64)
	outbound := make(chan any, 256)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		_ = s.relay.RunConnection(ctx, sess, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(2 << 20)

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		intent, err := protocol.ParseClientMessage(data)
		if err != nil {
			errEvent := protocol.ErrorEvent{
				Type:    protocol.TypeError,
				Message: "invalid message: " + err.Error(),
			}
			select {
			case outbound <- errEvent:
			default:
				// Keep websocket writes single-threaded; drop if the
				// outbound queue is saturated.
			}
			continue
		}

		s.metrics.WSMessages.WithLabelValues("inbound", string(intent.Type)).Inc()
		s.sessions.Touch(sess.ID)
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- intent:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.MessageEvent:
		return m.Type, true
	case protocol.ChunkEvent:
		return m.Type, true
	case protocol.CompleteEvent:
		return m.Type, true
	case protocol.TypingEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
