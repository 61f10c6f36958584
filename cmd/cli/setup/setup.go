// Package setup wires the command line tools from the environment.
package setup

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/turtlesoup/internal/ai"
	"github.com/myrjola/turtlesoup/internal/envstruct"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/evaluator"
	"github.com/myrjola/turtlesoup/internal/game"
	"github.com/myrjola/turtlesoup/internal/logging"
	"github.com/myrjola/turtlesoup/internal/repositories"
	"github.com/myrjola/turtlesoup/internal/sqlite"
)

// Config is read from the environment. A .env file in the working directory is loaded first.
type Config struct {
	SQLiteURL         string        `env:"TURTLESOUP_SQLITE_URL" envDefault:"./turtlesoup.sqlite"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL     string        `env:"TURTLESOUP_OPENAI_BASE_URL" envDefault:""`
	HostModel         string        `env:"TURTLESOUP_HOST_MODEL" envDefault:"gpt-4o-mini"`
	PlayerModel       string        `env:"TURTLESOUP_PLAYER_MODEL" envDefault:"gpt-4o-mini"`
	JudgeModel        string        `env:"TURTLESOUP_JUDGE_MODEL" envDefault:"gpt-4o-mini"`
	Temperature       float64       `env:"TURTLESOUP_TEMPERATURE" envDefault:"0.7"`
	MaxRounds         int           `env:"TURTLESOUP_MAX_ROUNDS" envDefault:"20"`
	MaxRetries        int           `env:"TURTLESOUP_MAX_RETRIES" envDefault:"2"`
	InvocationTimeout time.Duration `env:"TURTLESOUP_INVOCATION_TIMEOUT" envDefault:"1m"`
	Parallelism       int           `env:"TURTLESOUP_PARALLELISM" envDefault:"4"`
}

// LoadConfig populates Config with lookupEnv, usually [os.LookupEnv].
func LoadConfig(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return cfg, errors.Wrap(err, "populate config")
	}
	return cfg, nil
}

// SessionConfig returns the game configuration described by the environment with the default roster.
func (cfg Config) SessionConfig() game.Config {
	session := game.DefaultConfig()
	session.MaxRounds = cfg.MaxRounds
	session.MaxRetries = cfg.MaxRetries
	session.InvocationTimeout = cfg.InvocationTimeout
	return session
}

// NewLogger logs text to stderr so that stdout stays parseable.
func NewLogger() *slog.Logger {
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelInfo,
	})))
}

// Invoker routes every role to its own model on the same OpenAI compatible endpoint. With mock set no model is called
// and canned replies are returned instead.
func (cfg Config) Invoker(mock bool, logger *slog.Logger) ai.Invoker {
	if mock {
		logger.Info("using mock invoker, no model is called")
		return ai.NewMockInvoker()
	}
	client := func(model string) *ai.Client {
		return ai.NewClient(ai.ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       model,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   ai.MaxTokens,
		}, logger)
	}
	host := client(cfg.HostModel)
	return ai.Router{
		Host:    host,
		Player:  client(cfg.PlayerModel),
		Judge:   client(cfg.JudgeModel),
		Default: host,
	}
}

// Evaluator grades with the judge role. Judge calls get the same retry bound and timeout as game calls. Coverage is
// decided offline by keyword overlap when keywordCoverage is set.
func (cfg Config) Evaluator(invoker ai.Invoker, keywordCoverage bool, logger *slog.Logger) *evaluator.Evaluator {
	judge := ai.Retrying{
		Invoker:    invoker,
		MaxRetries: cfg.MaxRetries,
		Timeout:    cfg.InvocationTimeout,
		Logger:     logger,
	}
	var comparator evaluator.Comparator = evaluator.NewLLMComparator(judge)
	if keywordCoverage {
		comparator = evaluator.KeywordComparator{Threshold: evaluator.DefaultKeywordThreshold}
	}
	return evaluator.New(comparator, evaluator.NewLLMGrader(judge), logger)
}

// Store bundles the database with its repositories.
type Store struct {
	DB       *sqlite.Database
	Puzzles  *repositories.PuzzleRepository
	Sessions *repositories.SessionRepository
}

// OpenStore opens and migrates the database.
func (cfg Config) OpenStore(ctx context.Context, logger *slog.Logger) (*Store, error) {
	db, err := sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open database", slog.String("url", cfg.SQLiteURL))
	}
	return &Store{
		DB:       db,
		Puzzles:  repositories.NewPuzzleRepository(db, logger),
		Sessions: repositories.NewSessionRepository(db, logger),
	}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return errors.Wrap(err, "encode json")
	}
	return nil
}
