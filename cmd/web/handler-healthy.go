package main

import "net/http"

// healthy responds with a JSON object indicating that the server is healthy and the database is reachable.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	if _, err := app.puzzles.List(r.Context()); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
