package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-session-service/internal/app"
	"trivia-session-service/internal/config"
	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
	pgloader "trivia-session-service/internal/infra/postgres"
	redisinfra "trivia-session-service/internal/infra/redis"
	transport "trivia-session-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
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
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	bankID := cfg.Trivia.Bank
	if bankID == "" {
		bankID = "default"
	}
	cooldownWindow := config.Duration(cfg.Trivia.Cooldown, time.Hour)

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks(bankID))
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}
	bank := memory.NewBankRepository(loader, 10*time.Minute)

	var cooldowns memory.Cooldowns
	var scorer app.Scorer
	var store app.SessionRepository
	var gateHook app.GateHook
	if redisClient != nil {
		cooldownStore := redisinfra.NewCooldownStore(redisClient, cooldownWindow)
		cooldowns = cooldownStore
		keys := redisinfra.NewAnswerKeyRepository(redisClient, loader, 10*time.Minute)
		scorer = redisinfra.NewScorer(redisClient, keys, bankID, cooldownStore, cfg.Trivia.PointsPerCorrect)
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
		gateHook = redisinfra.NewImpressionCounter(redisClient).Record
	} else {
		ledger := memory.NewCooldownLedger(cooldownWindow)
		cooldowns = ledger
		scorer = memory.NewScorer(bank, bankID, ledger, cfg.Trivia.PointsPerCorrect)
		store = memory.NewSessionStore()
	}
	provider := memory.NewQuestionProvider(bank, bankID, cooldowns, cfg.Trivia.QuestionsPerSession)

	rules := app.Rules{
		QuestionSeconds:  cfg.Trivia.QuestionSeconds,
		TransitionDelay:  config.Duration(cfg.Trivia.TransitionDelay, 500*time.Millisecond),
		PointsPerCorrect: cfg.Trivia.PointsPerCorrect,
	}
	service := app.NewTriviaService(store, provider, scorer, rules, gateHook)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia session service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks provides a minimal question bank; swap the loader for the
// Postgres-backed one in production.
func sampleBanks(bankID string) map[string][]domain.Question {
	return map[string][]domain.Question{
		bankID: {
			{
				ID:      "q1",
				Prompt:  "What is the capital of France?",
				Options: []string{"Berlin", "Paris", "Madrid", "Rome"},
				Answer:  "Paris",
				Subject: "geography",
			},
			{
				ID:      "q2",
				Prompt:  "What is 2 + 2?",
				Options: []string{"3", "4", "5"},
				Answer:  "4",
				Subject: "math",
			},
			{
				ID:      "q3",
				Prompt:  "Which planet is known as the Red Planet?",
				Options: []string{"Venus", "Jupiter", "Mars", "Saturn"},
				Answer:  "Mars",
				Subject: "science",
			},
		},
	}
}
