package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthy", app.healthy)
	mux.HandleFunc("GET /api/puzzles", app.listPuzzles)
	mux.HandleFunc("GET /api/puzzles/{id}", app.getPuzzle)
	mux.HandleFunc("GET /api/sessions", app.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", app.getSession)
	mux.HandleFunc("GET /api/sessions/{id}/report", app.getReport)
	mux.HandleFunc("/", app.notFound)

	return alice.New(app.recoverPanic, app.logRequest, secureHeaders).Then(mux)
}
