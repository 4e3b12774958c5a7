package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/openarcade/playerbase/config"
	"github.com/openarcade/playerbase/internal/db"
	"github.com/openarcade/playerbase/internal/events"
	"github.com/openarcade/playerbase/internal/handlers"
	"github.com/openarcade/playerbase/internal/mq"
	"github.com/openarcade/playerbase/internal/services"
	"github.com/openarcade/playerbase/internal/storage"
	"github.com/openarcade/playerbase/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	queue, publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	avatars, err := newAvatarStorage(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		closeQueue(queue)
		return nil, err
	}

	accountRepo := store.NewAccountRepository(dbConn)
	scoreRepo := store.NewScoreRepository(dbConn)
	friendshipRepo := store.NewFriendshipRepository(dbConn)

	accountService := services.NewAccountService(accountRepo)
	scoreService := services.NewScoreService(scoreRepo, publisher)
	friendshipService := services.NewFriendshipService(friendshipRepo, publisher)

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, accountService, jwtSecret)
	})
	router.Route("/players", func(r chi.Router) {
		handlers.PlayerRouter(r, accountService, scoreService, avatars, authMiddleware)
	})
	router.Route("/leaderboard", func(r chi.Router) {
		handlers.LeaderboardRouter(r, scoreService)
	})
	router.Route("/friends", func(r chi.Router) {
		handlers.FriendRouter(r, friendshipService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
	}, nil
}

// newPublisher selects the event broker from config. An empty MQ_BACKEND
// disables publication.
func newPublisher(ctx context.Context, cfg config.Config) (*mq.MQ, events.Publisher, error) {
	switch cfg.MQBackend {
	case "":
		return nil, events.NopPublisher{}, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, nil, err
		}
		queue := mq.New(client)
		return queue, events.NewMQPublisher(queue), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, nil, err
		}
		queue := mq.New(client)
		return queue, events.NewMQPublisher(queue), nil
	default:
		return nil, nil, fmt.Errorf("unknown mq backend %q", cfg.MQBackend)
	}
}

// newAvatarStorage selects the object store from config. An empty
// STORAGE_BACKEND disables avatar routes.
func newAvatarStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	switch cfg.StorageBackend {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		avatars := storage.NewStorage(client)
		if err := avatars.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return avatars, nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		avatars := storage.NewStorage(client)
		if err := avatars.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return avatars, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func closeQueue(queue *mq.MQ) {
	if queue != nil {
		_ = queue.Close()
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	closeQueue(s.queue)
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
