package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"culturax-service/internal/app"
	"culturax-service/internal/auth"
	"culturax-service/internal/config"
	"culturax-service/internal/domain"
	"culturax-service/internal/infra/memory"
	"culturax-service/internal/infra/postgres"
	redisstore "culturax-service/internal/infra/redis"
	"culturax-service/internal/logging"
	"culturax-service/internal/metrics"
	transport "culturax-service/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	demoAdminEmail    = "admin@culturax.local"
	demoAdminPassword = "culturax-admin"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the CulturaX server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backend is the storage side of the service: either Postgres or the
// seeded in-memory gateway.
type backend struct {
	gateway app.Gateway
	creds   auth.CredentialStore
	loader  memory.QuizLoader
	close   func() error
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.App.Name, cfg.App.LogLevel)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)

	var (
		catalog  app.QuizCatalog
		sessions app.PlaySessionStore
		tokens   auth.TokenStore
		live     func(context.Context) (int, error)
	)
	if redisClient != nil {
		catalog = redisstore.NewQuizCatalog(redisClient, store.loader, quizTTL, m)
		redisSessions := redisstore.NewSessionStore(redisClient, redisTTL)
		sessions, live = redisSessions, redisSessions.Live
		tokens = redisstore.NewTokenStore(redisClient)
	} else {
		catalog = memory.NewQuizCatalog(store.loader, quizTTL, m)
		memSessions := memory.NewSessionStore()
		sessions = memSessions
		live = func(context.Context) (int, error) { return memSessions.Len(), nil }
		tokens = memory.NewTokenStore()
	}

	provider, err := auth.NewProvider(
		cfg.Auth.JWTSecret,
		config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour),
		store.creds, tokens, log.WithField("component", "auth"),
	)
	if err != nil {
		return err
	}

	play := app.NewPlayService(catalog, store.gateway, sessions, log.WithField("component", "play"),
		app.WithMaxDuration(config.TTLDuration(cfg.Play.MaxDuration, 2*time.Hour)),
		app.WithWriteTimeout(config.TTLDuration(cfg.Play.WriteTimeout, 10*time.Second)),
		app.WithPlayMetrics(m),
	)
	services := transport.Services{
		Auth:        provider,
		Roles:       store.gateway,
		Catalog:     app.NewCatalogService(store.gateway, catalog),
		Play:        play,
		Leaderboard: app.NewLeaderboardService(store.gateway, cfg.Leaderboard.Limit),
		Profiles:    app.NewProfileService(store.gateway, store.gateway),
		Feedback:    app.NewFeedbackService(store.gateway),
		Admin:       app.NewAdminService(store.gateway, catalog, memory.NewDraftStore(), log.WithField("component", "admin"), m),
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.NewRouter(services, log, m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		log.WithField("port", finalPort).Info("starting CulturaX server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if n, err := live(shutdownCtx); err == nil && n > 0 {
		log.WithField("sessions", n).Warn("play sessions still live at shutdown")
	}
	return server.Shutdown(shutdownCtx)
}

func openBackend(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (backend, error) {
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return backend{}, err
		}
		db, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return backend{}, err
		}
		gw := postgres.NewGateway(db)
		return backend{
			gateway: gw,
			creds:   gw,
			loader:  postgres.NewQuizLoader(db),
			close:   db.Close,
		}, nil
	}

	gw := memory.NewGateway()
	if err := seedDemo(ctx, gw, log); err != nil {
		return backend{}, err
	}
	return backend{
		gateway: gw,
		creds:   gw,
		loader:  app.NewContentLoader(gw, gw),
		close:   func() error { return nil },
	}, nil
}

// seedDemo gives the in-memory gateway one playable quiz and an admin account.
func seedDemo(ctx context.Context, gw *memory.Gateway, log logrus.FieldLogger) error {
	seeder, err := auth.NewProvider("in-memory-seed-secret-not-for-tokens", time.Minute, gw, memory.NewTokenStore(), log)
	if err != nil {
		return err
	}
	session, err := seeder.SignUp(ctx, demoAdminEmail, demoAdminPassword, "curator")
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	gw.SetRole(session.User.ID, domain.RoleAdmin)

	quizID, err := gw.InsertQuiz(ctx, domain.Quiz{
		Title:       "Mughal Architecture",
		Description: "Monuments of the Mughal era",
		Category:    "Heritage",
		Difficulty:  domain.DifficultyEasy,
		TimeLimit:   300,
		IsActive:    true,
		CreatedBy:   session.User.ID,
	})
	if err != nil {
		return fmt.Errorf("seed quiz: %w", err)
	}
	if err := gw.InsertQuestions(ctx, app.QuestionRows(quizID, app.SampleQuestions())); err != nil {
		return fmt.Errorf("seed questions: %w", err)
	}
	log.WithFields(logrus.Fields{"admin": demoAdminEmail, "quiz_id": quizID}).Info("in-memory demo data seeded")
	return nil
}
