package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// SignIn sends the browser to the provider consent page.
func SignIn(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectURL, err := viewFor(d, r).SignIn(r.Context())
		if err != nil {
			d.Logger.Warn("failed to start sign in", logger.Error(err))
			backHome(w, r)
			return
		}
		http.Redirect(w, r, redirectURL, http.StatusSeeOther)
	}
}

// Callback finishes the OAuth flow. The new session reaches the view through
// the session broker, so this only reports failures to the log.
func Callback(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		clientID := mw.ClientIDFrom(r.Context())
		q := r.URL.Query()

		if reason := q.Get("error"); reason != "" {
			d.Logger.Info("oauth sign in declined",
				logger.String("provider", provider),
				logger.String("reason", reason))
			backHome(w, r)
			return
		}

		// make sure the view exists and listens before the session is announced
		viewFor(d, r)

		if _, err := d.Auth.Callback(r.Context(), clientID, provider, q.Get("state"), q.Get("code")); err != nil {
			d.Logger.Warn("oauth callback failed",
				logger.String("provider", provider),
				logger.String("client_id", clientID),
				logger.Error(err))
		}
		backHome(w, r)
	}
}

func SignOut(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewFor(d, r).SignOut(r.Context())
		backHome(w, r)
	}
}
