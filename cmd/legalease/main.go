package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rbhagat/legalease/internal/auth"
	"github.com/rbhagat/legalease/internal/database"
	"github.com/rbhagat/legalease/internal/email"
	"github.com/rbhagat/legalease/internal/logging"
	"github.com/rbhagat/legalease/internal/model"
	"github.com/rbhagat/legalease/internal/rag"
	"github.com/rbhagat/legalease/internal/server"
	"github.com/rbhagat/legalease/internal/store"
)

const sweepInterval = time.Hour

func main() {
	logger := logging.Setup(os.Getenv("LEGALEASE_LOG_LEVEL"))

	port := os.Getenv("LEGALEASE_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("LEGALEASE_DB_PATH")
	if dbPath == "" {
		dbPath = "legalease.db"
	}

	secret := os.Getenv("LEGALEASE_JWT_SECRET")
	if secret == "" {
		log.Fatal("LEGALEASE_JWT_SECRET must be set")
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := bootstrapAdmin(db, logger); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	issuer := auth.NewIssuer([]byte(secret))

	emailClient := email.NewClient(
		os.Getenv("POSTMARK_SERVER_TOKEN"),
		os.Getenv("LEGALEASE_FROM_EMAIL"),
	)
	if !emailClient.Configured() {
		logger.Warn("outbound mail not configured; reset codes will be logged instead")
	}

	ragClient := rag.NewClient(rag.Config{
		BaseURL: os.Getenv("LEGALEASE_RAG_URL"),
	})

	srv := server.New(db, issuer, emailClient, ragClient, logger)

	// Hourly sweep reclaims expired reset tokens and stale rate limit
	// entries. Expired rows are already rejected by lookups, so the sweep
	// has no correctness role.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.ResetTokenStore().DeleteExpired(); err != nil {
					logger.Error("sweep reset tokens", "error", err)
				} else if n > 0 {
					logger.Info("swept expired reset tokens", "deleted", n)
				}
				srv.RateLimiter().Cleanup()
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 120 * time.Second, // AI responses can be slow
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("LegalEase API listening at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

// bootstrapAdmin creates the admin account on first run. The password comes
// from the environment; if unset, a random one is generated and logged once.
func bootstrapAdmin(db *sql.DB, logger *slog.Logger) error {
	adminEmail := os.Getenv("LEGALEASE_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@legalease.local"
	}

	userStore := store.NewUserStore(db)
	existing, err := userStore.GetByEmail(adminEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	password := os.Getenv("LEGALEASE_ADMIN_PASSWORD")
	if password == "" {
		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			return err
		}
		password = hex.EncodeToString(b)
		logger.Warn("generated admin password", "email", adminEmail, "password", password)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := userStore.Create("Administrator", adminEmail, hash, model.RoleAdmin); err != nil {
		return err
	}
	logger.Info("created admin account", "email", adminEmail)
	return nil
}
