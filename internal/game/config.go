package game

import (
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/turtlesoup/internal/ai"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/models"
)

const (
	// DefaultMaxRounds is the round budget of a session.
	DefaultMaxRounds = 20
	// DefaultMaxRetries is how many times a failed model call is repeated.
	DefaultMaxRetries = 2
	// DefaultInvocationTimeout bounds a single model call.
	DefaultInvocationTimeout = time.Minute
)

var (
	// ErrInvalidConfig is returned before any model is invoked when the session parameters are unusable.
	ErrInvalidConfig = errors.NewSentinel("invalid session configuration")
	// ErrProtocolViolation means a role answered outside the required format even after the corrective retry.
	ErrProtocolViolation = errors.NewSentinel("protocol violation")
	// ErrInvocationFailure means the model could not be reached within the retry bound.
	ErrInvocationFailure = ai.ErrInvocationFailure
	// ErrSessionAborted wraps the cause of an aborted session. The partial transcript is still returned.
	ErrSessionAborted = errors.NewSentinel("session aborted")
	// ErrSessionFinished is returned when Run is called on a session that has already been played.
	ErrSessionFinished = errors.NewSentinel("session already played")
)

// Config is fixed at session construction and never mutated during play.
type Config struct {
	Players []models.PlayerConfig
	// MaxRounds bounds the number of player actions. Forced final explanations do not count as rounds.
	MaxRounds int
	// MaxRetries is how many times a failed invocation is repeated with the identical request.
	MaxRetries int
	// InvocationTimeout bounds each model call. Zero disables the per-call timeout.
	InvocationTimeout time.Duration
	// JudgeExplanations asks the host whether each explanation matches the truth. A YES ends the session as solved.
	JudgeExplanations bool
}

// DefaultConfig returns the configuration used in the reference experiments: two players with contrasting
// questioning strategies.
func DefaultConfig() Config {
	return Config{
		Players: []models.PlayerConfig{
			{Name: "Player1", Strategy: "systematic"},
			{Name: "Player2", Strategy: "creative"},
		},
		MaxRounds:         DefaultMaxRounds,
		MaxRetries:        DefaultMaxRetries,
		InvocationTimeout: DefaultInvocationTimeout,
		JudgeExplanations: false,
	}
}

// Validate fails fast on parameters that would make the session unplayable.
func (c Config) Validate() error {
	if len(c.Players) == 0 {
		return errors.Wrap(ErrInvalidConfig, "empty player roster")
	}
	if c.MaxRounds <= 0 {
		return errors.Wrap(ErrInvalidConfig, "max rounds must be positive", slog.Int("max_rounds", c.MaxRounds))
	}
	if c.MaxRetries < 0 {
		return errors.Wrap(ErrInvalidConfig, "max retries must not be negative", slog.Int("max_retries", c.MaxRetries))
	}
	if c.InvocationTimeout < 0 {
		return errors.Wrap(ErrInvalidConfig, "invocation timeout must not be negative")
	}
	seen := make(map[string]bool, len(c.Players))
	for _, p := range c.Players {
		if strings.TrimSpace(p.Name) == "" {
			return errors.Wrap(ErrInvalidConfig, "empty player name")
		}
		if seen[p.Name] {
			return errors.Wrap(ErrInvalidConfig, "duplicate player name", slog.String("player", p.Name))
		}
		seen[p.Name] = true
	}
	return nil
}

// ParseRoster parses a comma separated roster such as "Alice:systematic,Bob:creative". The strategy defaults to
// systematic when omitted.
func ParseRoster(roster string) ([]models.PlayerConfig, error) {
	var players []models.PlayerConfig
	for _, entry := range strings.Split(roster, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, strategy, _ := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		strategy = strings.TrimSpace(strategy)
		if name == "" {
			return nil, errors.Wrap(ErrInvalidConfig, "empty player name", slog.String("entry", entry))
		}
		if strategy == "" {
			strategy = "systematic"
		}
		players = append(players, models.PlayerConfig{Name: name, Strategy: strategy})
	}
	if len(players) == 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "empty player roster")
	}
	return players, nil
}
