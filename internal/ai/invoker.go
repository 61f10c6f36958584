package ai

import (
	"context"
	"log/slog"

	"github.com/myrjola/turtlesoup/internal/errors"
)

// Role tells which part of the game a request is made for.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
	RoleJudge  Role = "judge"
)

var (
	ErrEmptyResponse = errors.NewSentinel("empty model response")
	ErrNoInvoker     = errors.NewSentinel("no invoker configured for role")
)

// Request is a single prompt to a language model on behalf of a role.
type Request struct {
	Role Role
	// Actor is the player name for player requests and empty otherwise.
	Actor  string
	System string
	User   string
}

// Invoker produces a text response for a request. Implementations must block until the response is complete and
// must not retain the request.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (string, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, req Request) (string, error)

func (f InvokerFunc) Invoke(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Router dispatches requests to a per-role invoker so that, e.g., the host and the players can be played by
// different models. Default serves the roles without a dedicated invoker.
type Router struct {
	Host    Invoker
	Player  Invoker
	Judge   Invoker
	Default Invoker
}

func (r Router) Invoke(ctx context.Context, req Request) (string, error) {
	var invoker Invoker
	switch req.Role {
	case RoleHost:
		invoker = r.Host
	case RolePlayer:
		invoker = r.Player
	case RoleJudge:
		invoker = r.Judge
	}
	if invoker == nil {
		invoker = r.Default
	}
	if invoker == nil {
		return "", errors.Wrap(ErrNoInvoker, "route request", slog.String("role", string(req.Role)))
	}
	response, err := invoker.Invoke(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "invoke routed model", slog.String("role", string(req.Role)))
	}
	return response, nil
}
