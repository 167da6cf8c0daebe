// Package web exposes the HTTP API: the chat endpoint, catalog read
// endpoints and the embedded browser chat page.
package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/realcamp/guidebot/internal/catalog"
	"github.com/realcamp/guidebot/internal/config"
	"github.com/realcamp/guidebot/internal/dialog"
	"github.com/realcamp/guidebot/internal/i18n"
	"github.com/realcamp/guidebot/internal/storage"
	"github.com/realcamp/guidebot/internal/ui"
)

const metricsNamespace = "guidebot"

// maxChatBodyBytes bounds a chat request body.
const maxChatBodyBytes = 1 << 20

// getClientIP extracts the real client IP from the request.
// It checks X-Forwarded-For and X-Real-IP headers (set by reverse proxies),
// falling back to RemoteAddr if no proxy headers are present.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For may contain multiple IPs: "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

type Server struct {
	cfg          *config.Config
	logger       *slog.Logger
	catalog      *catalog.Repository
	store        storage.Store
	orchestrator *dialog.Orchestrator
	translator   *i18n.Translator
	renderer     *ui.Renderer
}

func NewServer(
	logger *slog.Logger,
	cfg *config.Config,
	cat *catalog.Repository,
	store storage.Store,
	orchestrator *dialog.Orchestrator,
	translator *i18n.Translator,
) (*Server, error) {
	renderer, err := ui.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize renderer: %w", err)
	}

	return &Server{
		cfg:          cfg,
		logger:       logger.With("component", "web_server"),
		catalog:      cat,
		store:        store,
		orchestrator: orchestrator,
		translator:   translator,
		renderer:     renderer,
	}, nil
}

// Handler builds the full HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", instrumentHandler("index", s.indexHandler))
	mux.HandleFunc("POST /chat", instrumentHandler("chat", s.chatHandler))
	mux.HandleFunc("GET /categories", instrumentHandler("categories", s.categoriesHandler))
	mux.HandleFunc("GET /badges/{categoryID}", instrumentHandler("badges", s.badgesHandler))
	mux.HandleFunc("GET /badge/{badgeID}", instrumentHandler("badge", s.badgeHandler))
	mux.HandleFunc("GET /healthz", instrumentHandler("healthz", s.healthzHandler))
	mux.Handle("/metrics", promhttp.Handler())

	if s.cfg.Server.DebugMode {
		mux.HandleFunc("GET /ui/context", instrumentHandler("debug_context", s.debugContextHandler))
		mux.HandleFunc("GET /ui/history", instrumentHandler("debug_history", s.debugHistoryHandler))
		s.logger.Info("Debug endpoints enabled at /ui/")
	}

	// Chain: Logging -> Auth -> CORS -> Mux
	handler := s.corsMiddleware(mux)
	handler = s.basicAuthMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	return handler
}

func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Server.Auth.Enabled && s.cfg.Server.Auth.Password == "" {
		bytes := make([]byte, 6) // 12 hex chars
		if _, err := rand.Read(bytes); err != nil {
			return fmt.Errorf("failed to generate random password: %w", err)
		}
		s.cfg.Server.Auth.Password = hex.EncodeToString(bytes)
		fmt.Printf("\n⚠️  Debug UI password not set, generated: %s\n\n", s.cfg.Server.Auth.Password)
		s.logger.Info("Debug UI password auto-generated (see console output)")
	}

	server := &http.Server{
		Addr:              ":" + s.cfg.Server.ListenPort,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("web server shutdown failed", "error", err)
		}
	}()

	s.logger.Info("Starting web server", "port", s.cfg.Server.ListenPort)
	err := server.ListenAndServe()
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

// indexHandler renders the embedded chat page.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	lang := s.cfg.Bot.Language
	page := ui.ChatPage{
		Title:    s.cfg.Bot.Name,
		BotName:  s.cfg.Bot.Name,
		Tagline:  s.translator.Get(lang, "bot.tagline"),
		Greeting: s.translator.Get(lang, "bot.greeting"),
		Suggestions: []string{
			s.translator.Get(lang, "suggestions.general.categories"),
			s.translator.Get(lang, "suggestions.general.recommend"),
			s.translator.Get(lang, "suggestions.general.philosophy"),
		},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Render(w, "chat.html", page); err != nil {
		s.logger.Error("failed to render chat page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// chatHandler runs one chat turn.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var req dialog.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	resp, err := s.orchestrator.GenerateResponse(r.Context(), req)
	if err != nil {
		s.logger.Error("failed to generate response", "user_id", req.UserID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to generate response")
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) categoriesHandler(w http.ResponseWriter, r *http.Request) {
	type categoryItem struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Emoji       string `json:"emoji"`
		BadgesCount int    `json:"badges_count"`
	}

	categories := s.catalog.Categories()
	items := make([]categoryItem, 0, len(categories))
	for _, cat := range categories {
		items = append(items, categoryItem{
			ID:          cat.ID,
			Title:       cat.Title,
			Emoji:       cat.Emoji,
			BadgesCount: len(cat.Badges),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"categories": items})
}

func (s *Server) badgesHandler(w http.ResponseWriter, r *http.Request) {
	categoryID := r.PathValue("categoryID")

	type badgeItem struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Emoji       string `json:"emoji"`
		Description string `json:"description"`
		LevelsCount int    `json:"levels_count"`
	}

	badges := s.catalog.BadgesByCategory(categoryID)
	items := make([]badgeItem, 0, len(badges))
	for _, badge := range badges {
		items = append(items, badgeItem{
			ID:          badge.ID,
			Title:       badge.Title,
			Emoji:       badge.Emoji,
			Description: badge.Description,
			LevelsCount: len(badge.Levels),
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"category_id": categoryID,
		"badges":      items,
	})
}

func (s *Server) badgeHandler(w http.ResponseWriter, r *http.Request) {
	badgeID := r.PathValue("badgeID")

	badge := s.catalog.GetBadge(badgeID)
	if badge == nil {
		// Уровневый id вида 11.3.2 приводим к базовому значку
		badge = s.catalog.GetBadge(dialog.NormalizeBadgeID(badgeID))
	}
	if badge == nil {
		s.writeError(w, http.StatusNotFound, "Значок не найден")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"badge": badge})
}

func (s *Server) healthzHandler(w http.ResponseWriter, r *http.Request) {
	guide := s.catalog.Guide()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]bool{
			"catalog": guide != nil && len(guide.Categories) > 0,
			"store":   s.store != nil,
		},
	})
}

// debugContextHandler returns the stored dialogue context of a user.
func (s *Server) debugContextHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.GetOrCreate(userID))
}

// debugHistoryHandler returns the stored conversation history of a user.
func (s *Server) debugHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  userID,
		"messages": s.store.History(userID),
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// healthz и metrics шумят, уводим их в debug
		if path == "/healthz" || path == "/metrics" {
			s.logger.Debug("Received HTTP request",
				"method", r.Method,
				"path", path,
				"client_ip", getClientIP(r),
			)
		} else {
			s.logger.Info("Received HTTP request",
				"method", r.Method,
				"path", path,
				"client_ip", getClientIP(r),
				"user_agent", r.UserAgent(),
			)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware allows browser clients served from other origins to call
// the API.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only protect /ui/ routes
		if strings.HasPrefix(r.URL.Path, "/ui/") {
			if !s.cfg.Server.Auth.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok || user != s.cfg.Server.Auth.Username || pass != s.cfg.Server.Auth.Password {
				w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
