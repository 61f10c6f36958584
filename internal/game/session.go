package game

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/myrjola/turtlesoup/internal/ai"
	"github.com/myrjola/turtlesoup/internal/errors"
	"github.com/myrjola/turtlesoup/internal/logging"
	"github.com/myrjola/turtlesoup/internal/models"
)

// State is the position of a session in its lifecycle.
type State string

const (
	StateInit       State = "INIT"
	StateInProgress State = "IN_PROGRESS"
	StateSolved     State = "SOLVED"
	StateExhausted  State = "EXHAUSTED"
	StateAborted    State = "ABORTED"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateSolved || s == StateExhausted || s == StateAborted
}

// Session plays one puzzle from the first question to a terminal transcript.
//
// A session is not safe for concurrent use. Independent sessions share nothing and can run in parallel.
type Session struct {
	id       string
	puzzle   models.Puzzle
	cfg      Config
	invoker  ai.Invoker
	prompter Prompter
	logger   *slog.Logger
	now      func() time.Time

	state      State
	transcript models.Transcript
	finished   map[string]bool
	cursor     int
}

// Option customises a Session.
type Option func(*Session)

// WithSessionID overrides the random session ID.
func WithSessionID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithClock overrides the time source used for the transcript timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession validates the configuration and the puzzle and prepares a session in the INIT state.
// No model is invoked before Run.
func NewSession(
	puzzle models.Puzzle,
	cfg Config,
	invoker ai.Invoker,
	prompter Prompter,
	logger *slog.Logger,
	opts ...Option,
) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := puzzle.Validate(); err != nil {
		return nil, errors.Wrap(fmt.Errorf("%w: %w", ErrInvalidConfig, err), "validate puzzle",
			slog.String("puzzle_id", puzzle.ID))
	}
	if invoker == nil || prompter == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "invoker and prompter are required")
	}
	s := &Session{
		id:       uuid.NewString(),
		puzzle:   puzzle,
		cfg:      cfg,
		invoker:  invoker,
		prompter: prompter,
		logger:   logger.With("source", "game.Session"),
		now:      time.Now,
		state:    StateInit,
		finished: make(map[string]bool, len(cfg.Players)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.transcript = models.Transcript{
		SessionID:          s.id,
		PuzzleRef:          puzzle.ID,
		Players:            slices.Clone(cfg.Players),
		MaxRounds:          cfg.MaxRounds,
		Turns:              []models.Turn{},
		FinalExplanations:  map[string]string{},
		ForcedExplanations: []string{},
	}
	return s, nil
}

// ID returns the session ID that is also recorded in the transcript.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Run plays the session to a terminal state and returns the transcript.
//
// The transcript is returned even when the session aborts. In that case the error wraps ErrSessionAborted together
// with the cause, and the transcript holds every turn completed before the failure.
func (s *Session) Run(ctx context.Context) (models.Transcript, error) {
	if s.state != StateInit {
		return models.Transcript{}, errors.Wrap(ErrSessionFinished, "run session", slog.String("session_id", s.id))
	}
	ctx = logging.WithAttrs(ctx, slog.String("session_id", s.id), slog.String("puzzle_id", s.puzzle.ID))
	s.state = StateInProgress
	s.transcript.StartedAt = s.now()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "session started",
		slog.Int("players", len(s.cfg.Players)), slog.Int("max_rounds", s.cfg.MaxRounds))

	round := 0
	solved := false
	for round < s.cfg.MaxRounds && !s.allFinished() && !solved {
		player := s.nextPlayer()
		var err error
		if solved, err = s.playRound(ctx, round, player); err != nil {
			s.transcript.RoundsUsed = round
			return s.abort(ctx, err)
		}
		round++
	}
	s.transcript.RoundsUsed = round

	if solved || s.allFinished() {
		return s.finish(ctx, StateSolved, models.OutcomeSolved), nil
	}

	// The round budget is spent. Everyone still playing has to commit to an explanation.
	for _, player := range s.cfg.Players {
		if s.finished[player.Name] {
			continue
		}
		explanation, err := s.forceExplanation(ctx, player)
		if err != nil {
			return s.abort(ctx, err)
		}
		s.recordExplanation(player.Name, explanation)
		s.transcript.ForcedExplanations = append(s.transcript.ForcedExplanations, player.Name)
	}
	return s.finish(ctx, StateExhausted, models.OutcomeExhausted), nil
}

// playRound lets one player act. It reports whether the host judged the player's explanation to be the truth.
func (s *Session) playRound(ctx context.Context, round int, player models.PlayerConfig) (bool, error) {
	ctx = logging.WithAttrs(ctx, slog.Int("round_index", round), slog.String("actor", player.Name))
	if err := ctx.Err(); err != nil {
		return false, errors.Wrap(err, "session cancelled")
	}

	mv, err := s.askPlayer(ctx, player)
	if err != nil {
		return false, err
	}

	if mv.explanation {
		s.recordExplanation(player.Name, mv.text)
		s.logger.LogAttrs(ctx, slog.LevelInfo, "player explained")
		if !s.cfg.JudgeExplanations {
			return false, nil
		}
		correct, judgeErr := s.judgeExplanation(ctx, mv.text)
		if judgeErr != nil {
			return false, judgeErr
		}
		if correct {
			s.transcript.Winner = player.Name
			s.logger.LogAttrs(ctx, slog.LevelInfo, "host accepted explanation")
		}
		return correct, nil
	}

	answer, clarification, corrected, err := s.askHost(ctx, mv.text)
	if err != nil {
		return false, err
	}
	// Both sides are validated, only now the turn becomes part of the transcript.
	s.transcript.Turns = append(s.transcript.Turns, models.Turn{
		RoundIndex:    round,
		Actor:         player.Name,
		Question:      mv.text,
		Answer:        answer,
		Clarification: clarification,
		Corrected:     corrected,
	})
	s.logger.LogAttrs(ctx, slog.LevelDebug, "turn played",
		slog.String("question", mv.text), slog.String("answer", string(answer)))
	return false, nil
}

func (s *Session) askPlayer(ctx context.Context, player models.PlayerConfig) (move, error) {
	var mv move
	req := ai.Request{
		Role:   ai.RolePlayer,
		Actor:  player.Name,
		System: s.prompter.PlayerSystem(s.puzzle.Surface, player),
		User:   s.prompter.PlayerTurn(player, s.turns()),
	}
	_, err := s.exchange(ctx, req,
		func(_ string) string { return s.prompter.PlayerCorrection(player, s.turns()) },
		func(raw string) bool {
			var ok bool
			mv, ok = parseMove(raw)
			return ok
		})
	if err != nil {
		return move{}, errors.Wrap(err, "ask player", slog.String("actor", player.Name))
	}
	return mv, nil
}

func (s *Session) askHost(ctx context.Context, question string) (models.Answer, string, bool, error) {
	var (
		answer        models.Answer
		clarification string
	)
	req := ai.Request{
		Role:   ai.RoleHost,
		Actor:  "",
		System: s.prompter.HostSystem(s.puzzle),
		User:   s.prompter.HostQuestion(question),
	}
	corrected, err := s.exchange(ctx, req,
		func(raw string) string { return s.prompter.HostCorrection(question, raw) },
		func(raw string) bool {
			var ok bool
			answer, clarification, ok = parseAnswer(raw)
			return ok
		})
	if err != nil {
		return "", "", false, errors.Wrap(err, "ask host")
	}
	return answer, clarification, corrected, nil
}

func (s *Session) judgeExplanation(ctx context.Context, explanation string) (bool, error) {
	var answer models.Answer
	req := ai.Request{
		Role:   ai.RoleHost,
		Actor:  "",
		System: s.prompter.HostSystem(s.puzzle),
		User:   s.prompter.HostJudge(explanation),
	}
	_, err := s.exchange(ctx, req,
		func(raw string) string { return s.prompter.HostCorrection(explanation, raw) },
		func(raw string) bool {
			var ok bool
			answer, _, ok = parseAnswer(raw)
			return ok
		})
	if err != nil {
		return false, errors.Wrap(err, "judge explanation")
	}
	return answer == models.AnswerYes, nil
}

func (s *Session) forceExplanation(ctx context.Context, player models.PlayerConfig) (string, error) {
	ctx = logging.WithAttrs(ctx, slog.String("actor", player.Name))
	var explanation string
	req := ai.Request{
		Role:   ai.RolePlayer,
		Actor:  player.Name,
		System: s.prompter.PlayerSystem(s.puzzle.Surface, player),
		User:   s.prompter.PlayerFinal(player, s.turns()),
	}
	_, err := s.exchange(ctx, req,
		func(_ string) string { return s.prompter.PlayerFinalCorrection(player, s.turns()) },
		func(raw string) bool {
			var ok bool
			explanation, ok = parseExplanation(raw)
			return ok
		})
	if err != nil {
		return "", errors.Wrap(err, "force explanation", slog.String("actor", player.Name))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "player forced to explain")
	return explanation, nil
}

// exchange invokes req and validates the response with accept. A response that fails validation is retried once
// with the corrective prompt built by correct. It reports whether the correction was needed.
func (s *Session) exchange(
	ctx context.Context,
	req ai.Request,
	correct func(malformed string) string,
	accept func(raw string) bool,
) (bool, error) {
	raw, err := s.invoke(ctx, req)
	if err != nil {
		return false, err
	}
	if accept(raw) {
		return false, nil
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "malformed response, retrying with correction",
		slog.String("role", string(req.Role)), slog.String("response", raw))

	req.User = correct(raw)
	if raw, err = s.invoke(ctx, req); err != nil {
		return false, err
	}
	if accept(raw) {
		return true, nil
	}
	return false, errors.Wrap(ErrProtocolViolation, "malformed response after correction",
		slog.String("role", string(req.Role)), slog.String("response", raw))
}

// invoke calls the model with the session's retry bound and per-call timeout.
func (s *Session) invoke(ctx context.Context, req ai.Request) (string, error) {
	retrying := ai.Retrying{
		Invoker:    s.invoker,
		MaxRetries: s.cfg.MaxRetries,
		Timeout:    s.cfg.InvocationTimeout,
		Logger:     s.logger,
	}
	return retrying.Invoke(ctx, req)
}

func (s *Session) nextPlayer() models.PlayerConfig {
	for {
		player := s.cfg.Players[s.cursor%len(s.cfg.Players)]
		s.cursor++
		if !s.finished[player.Name] {
			return player
		}
	}
}

func (s *Session) allFinished() bool {
	return len(s.finished) == len(s.cfg.Players)
}

func (s *Session) recordExplanation(player, explanation string) {
	s.transcript.FinalExplanations[player] = explanation
	s.finished[player] = true
}

// turns hands the prompter a copy so that prompt construction cannot touch the transcript.
func (s *Session) turns() []models.Turn {
	return slices.Clone(s.transcript.Turns)
}

func (s *Session) finish(ctx context.Context, state State, outcome models.Outcome) models.Transcript {
	s.state = state
	s.transcript.Outcome = outcome
	s.transcript.EndedAt = s.now()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "session finished",
		slog.String("outcome", string(outcome)),
		slog.Int("rounds_used", s.transcript.RoundsUsed),
		slog.Int("turns", len(s.transcript.Turns)))
	return s.snapshot()
}

func (s *Session) abort(ctx context.Context, cause error) (models.Transcript, error) {
	s.transcript.AbortReason = cause.Error()
	transcript := s.finish(ctx, StateAborted, models.OutcomeAborted)
	s.logger.LogAttrs(ctx, slog.LevelError, "session aborted", errors.SlogError(cause))
	return transcript, errors.Wrap(fmt.Errorf("%w: %w", ErrSessionAborted, cause), "run session",
		slog.String("session_id", s.id))
}

func (s *Session) snapshot() models.Transcript {
	t := s.transcript
	t.Players = slices.Clone(t.Players)
	t.Turns = slices.Clone(t.Turns)
	t.FinalExplanations = maps.Clone(t.FinalExplanations)
	t.ForcedExplanations = slices.Clone(t.ForcedExplanations)
	return t
}
