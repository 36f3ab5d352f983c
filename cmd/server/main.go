package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookshelf/backend/internal/config"
	iddomain "bookshelf/backend/internal/domain/identity"
	"bookshelf/backend/internal/httpserver"
	"bookshelf/backend/internal/infrastructure/postgres"
	"bookshelf/backend/internal/infrastructure/token"
	authusecase "bookshelf/backend/internal/usecase/auth"
	catalogusecase "bookshelf/backend/internal/usecase/catalog"
	identityusecase "bookshelf/backend/internal/usecase/identity"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	rootCtx := context.Background()
	db, err := postgres.New(rootCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(rootCtx); err != nil {
		log.Fatalf("failed to run database migrations: %v", err)
	}

	tokenManager, err := token.NewJWTManager(cfg.TokenSecret, cfg.TokenTTL, cfg.TokenIssuer)
	if err != nil {
		log.Fatalf("failed to initialise token manager: %v", err)
	}

	identities := postgres.NewIdentityRepository(db.Pool)
	books := postgres.NewBookRepository(db.Pool)

	authService := authusecase.NewService(identities, tokenManager, cfg.GuestUsername)
	identityService := identityusecase.NewService(identities)
	catalogService := catalogusecase.NewService(books, identities)

	if err := seedSuperUser(rootCtx, cfg, identityService); err != nil {
		log.Fatalf("failed to seed super user: %v", err)
	}

	server := httpserver.NewServer(cfg, authService, identityService, catalogService)
	log.Printf("HTTP server listening on %s", server.Addr())

	go func() {
		if err := server.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				log.Printf("HTTP server closed: %v", err)
				return
			}
			log.Fatalf("server error: %v", err)
		}
		log.Printf("HTTP server stopped accepting new connections")
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v\n", err)
	} else {
		log.Printf("graceful shutdown completed")
	}
}

// seedSuperUser bootstraps the configured super account on first start so the
// catalog has at least one identity able to manage books and users.
func seedSuperUser(ctx context.Context, cfg config.Config, identityService *identityusecase.Service) error {
	username := strings.TrimSpace(cfg.SuperUsername)
	if username == "" || cfg.SuperPassword == "" {
		return nil
	}

	bootstrap := &iddomain.Identity{Username: "bootstrap", Role: iddomain.RoleSuper, ID: -1}
	_, err := identityService.Create(ctx, bootstrap, identityusecase.CreateInput{
		Username: username,
		Email:    cfg.SuperEmail,
		Password: cfg.SuperPassword,
		Role:     string(iddomain.RoleSuper),
	})
	switch {
	case err == nil:
		log.Printf("seeded super user %q", username)
		return nil
	case errors.Is(err, iddomain.ErrUsernameExists), errors.Is(err, iddomain.ErrEmailExists):
		return nil
	default:
		return err
	}
}
