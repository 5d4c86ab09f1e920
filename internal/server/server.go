package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/rbhagat/legalease/internal/auth"
	"github.com/rbhagat/legalease/internal/chat"
	"github.com/rbhagat/legalease/internal/email"
	"github.com/rbhagat/legalease/internal/handler"
	"github.com/rbhagat/legalease/internal/middleware"
	"github.com/rbhagat/legalease/internal/rag"
	"github.com/rbhagat/legalease/internal/store"
)

const ragHealthTTL = 30 * time.Second

type Server struct {
	db          *sql.DB
	issuer      *auth.Issuer
	authH       *handler.AuthHandler
	contractH   *handler.ContractHandler
	templateH   *handler.TemplateHandler
	adminH      *handler.AdminHandler
	ragH        *handler.RagHandler
	ragClient   *rag.Client
	chatH       http.HandlerFunc
	resetStore  *store.ResetTokenStore
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger

	healthMu        sync.Mutex
	ragHealthy      bool
	ragHealthCheckT time.Time
}

func New(db *sql.DB, issuer *auth.Issuer, emailClient *email.Client, ragClient *rag.Client, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	resetStore := store.NewResetTokenStore(db)
	templateStore := store.NewTemplateStore(db)
	contractStore := store.NewContractStore(db)

	return &Server{
		db:          db,
		issuer:      issuer,
		authH:       handler.NewAuthHandler(userStore, resetStore, issuer, emailClient, logger.With("component", "auth")),
		contractH:   handler.NewContractHandler(contractStore, templateStore, logger.With("component", "contract")),
		templateH:   handler.NewTemplateHandler(templateStore, logger.With("component", "template")),
		adminH:      handler.NewAdminHandler(userStore, contractStore, templateStore, logger.With("component", "admin")),
		ragH:        handler.NewRagHandler(ragClient, logger.With("component", "rag_proxy")),
		ragClient:   ragClient,
		chatH:       chat.Handler(ragClient, logger.With("component", "chat")),
		resetStore:  resetStore,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// ResetTokenStore returns the reset token store for cleanup tasks.
func (s *Server) ResetTokenStore() *store.ResetTokenStore {
	return s.resetStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes; the credential-sensitive ones are rate limited by IP.
	mux.HandleFunc("POST /signup", s.rateLimited(s.authH.Signup))
	mux.HandleFunc("POST /login", s.rateLimited(s.authH.Login))
	mux.HandleFunc("POST /forgot-password", s.rateLimited(s.authH.ForgotPassword))
	mux.HandleFunc("POST /verify-reset-code", s.rateLimited(s.authH.VerifyResetCode))
	mux.HandleFunc("POST /reset-password", s.authH.ResetPassword)
	mux.HandleFunc("GET /health", s.healthHandler)

	// AI proxy routes pass through without auth; availability is the
	// collaborator's concern.
	mux.HandleFunc("POST /chat", s.ragH.Chat)
	mux.HandleFunc("GET /search", s.ragH.Search)
	mux.HandleFunc("GET /document/{doc_id}", s.ragH.Document)
	mux.HandleFunc("GET /ws/chat", s.chatH)

	// Protected routes
	requireAuth := middleware.RequireAuth(s.issuer)
	protected := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}
	mux.Handle("GET /profile", protected(s.authH.Profile))
	mux.Handle("POST /change-password", protected(s.authH.ChangePassword))

	mux.Handle("GET /api/templates", protected(s.templateH.List))
	mux.Handle("GET /api/templates/{id}", protected(s.templateH.Get))

	mux.Handle("POST /api/contracts", protected(s.contractH.Create))
	mux.Handle("GET /api/contracts", protected(s.contractH.List))
	mux.Handle("GET /api/contracts/{id}", protected(s.contractH.Get))
	mux.Handle("PUT /api/contracts/{id}", protected(s.contractH.Update))
	mux.Handle("DELETE /api/contracts/{id}", protected(s.contractH.Delete))

	// Admin routes
	admin := func(h http.HandlerFunc) http.Handler {
		return requireAuth(middleware.RequireAdmin(h))
	}
	mux.Handle("GET /admin/users", admin(s.adminH.Users))
	mux.Handle("GET /admin/analytics", admin(s.adminH.Analytics))
	mux.Handle("POST /admin/templates", admin(s.templateH.Create))
	mux.Handle("PUT /admin/templates/{id}", admin(s.templateH.Update))
	mux.Handle("DELETE /admin/templates/{id}", admin(s.templateH.Delete))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	aiStatus := "unreachable"
	if s.ragReachable(r.Context()) {
		aiStatus = "ok"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":     "ok",
		"ai_service": aiStatus,
	})
}

// ragReachable reports the AI service's health, rechecked at most once per
// ragHealthTTL so the health endpoint never hammers the collaborator.
func (s *Server) ragReachable(ctx context.Context) bool {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	if time.Since(s.ragHealthCheckT) < ragHealthTTL {
		return s.ragHealthy
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	s.ragHealthy = s.ragClient.Healthy(ctx)
	s.ragHealthCheckT = time.Now()
	return s.ragHealthy
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
