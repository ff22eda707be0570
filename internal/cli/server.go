package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/config"
	"quiz-session-service/internal/infra/memory"
	pgloader "quiz-session-service/internal/infra/postgres"
	redisstore "quiz-session-service/internal/infra/redis"
	transport "quiz-session-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// quizBackend bundles the pieces that read and write quiz content.
type quizBackend struct {
	repo  app.QuizRepository
	store app.QuizStore
	cache app.QuizCache
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,

			ContextTimeoutEnabled: true,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	quizzes, closeQuizzes, err := newQuizBackend(cfg, pool, redisClient)
	if err != nil {
		return err
	}
	defer closeQuizzes()

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	defaults := app.DefaultOptions()
	service := app.NewSessionService(store, quizzes.repo, app.Options{
		Countdown:          config.TTLDuration(cfg.Session.Countdown, defaults.Countdown),
		ReapAfter:          config.TTLDuration(cfg.Session.ReapAfter, defaults.ReapAfter),
		MaxAutoStartNum:    config.IntOr(cfg.Session.MaxAutoStartNum, defaults.MaxAutoStartNum),
		MaxActivePerQuiz:   config.IntOr(cfg.Session.MaxActivePerQuiz, defaults.MaxActivePerQuiz),
		MaxDurationSeconds: config.IntOr(cfg.Quiz.MaxDurationSeconds, defaults.MaxDurationSeconds),
	})
	defer service.Shutdown()
	editor := app.NewQuizEditor(service, quizzes.repo, quizzes.store, quizzes.cache)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewAPI(service, editor).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(service).ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// websocket connections stay open, so no WriteTimeout
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting quiz session service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return service.RunReaper(gctx, config.TTLDuration(cfg.Session.ReapInterval, time.Minute))
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newQuizBackend picks where quizzes come from: Postgres when configured,
// otherwise the YAML file named by quiz.file. Redis, when present, caches reads.
func newQuizBackend(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client) (quizBackend, func(), error) {
	var (
		loader memory.QuizLoader
		store  app.QuizStore
		closer = func() {}
	)
	switch {
	case pool != nil:
		loader = pgloader.NewQuizLoader(pool)
		db := pgloader.OpenDB(cfg.Postgres.URL)
		store = pgloader.NewQuizWriter(db)
		closer = func() { _ = db.Close() }
	case cfg.Quiz.File != "":
		static, err := memory.LoadQuizFile(cfg.Quiz.File)
		if err != nil {
			return quizBackend{}, nil, err
		}
		loader, store = static, static
	default:
		static := memory.NewStaticQuizLoader(nil)
		loader, store = static, static
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		repo := redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		return quizBackend{repo: repo, store: store, cache: repo}, closer, nil
	}
	repo := memory.NewQuizRepository(loader, quizTTL)
	return quizBackend{repo: repo, store: store, cache: repo}, closer, nil
}
