package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func init() { Register("auth", registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Use(mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.AuthRateBurst,
			RefillPerIPPerMin: d.AuthRatePerMin,
			MaxEntries:        10000,
			TrustProxy:        d.TrustProxy,
			Logger:            d.Logger,
		}))
		r.Use(mw.ClientID(d.CookieSecure, d.Logger))

		r.Post("/signin", handlers.SignIn(d))
		r.Get("/callback/{provider}", handlers.Callback(d))
		r.Post("/signout", handlers.SignOut(d))
	})
}
