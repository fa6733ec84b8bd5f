package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func init() { Register("page", registerPage) }

func registerPage(r chi.Router, d deps.Deps) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Use(mw.ClientID(d.CookieSecure, d.Logger))

		r.Get("/", handlers.Page(d))
		r.Post("/bookmarks", handlers.AddBookmark(d))
		r.Post("/bookmarks/{id}/delete", handlers.DeleteBookmark(d))
	})
}
