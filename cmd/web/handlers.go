package main

import (
	"net/http"
)

func (app *application) listPuzzles(w http.ResponseWriter, r *http.Request) {
	puzzles, err := app.puzzles.List(r.Context())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, puzzles)
}

func (app *application) getPuzzle(w http.ResponseWriter, r *http.Request) {
	puzzle, err := app.puzzles.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		app.repositoryError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, puzzle)
}

// listSessions lists the sessions newest first. The optional puzzle query parameter filters by puzzle id.
func (app *application) listSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := app.sessions.List(r.Context(), r.URL.Query().Get("puzzle"))
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, summaries)
}

func (app *application) getSession(w http.ResponseWriter, r *http.Request) {
	transcript, err := app.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		app.repositoryError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, transcript)
}

func (app *application) getReport(w http.ResponseWriter, r *http.Request) {
	report, err := app.sessions.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		app.repositoryError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, report)
}
