package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
)

const maxFormBytes = 64 << 10

// AddBookmark copies the submitted form into the view and adds it.
func AddBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		ctrl := viewFor(d, r)
		ctrl.SetForm(r.PostFormValue("title"), r.PostFormValue("url"))
		ctrl.Add(r.Context())
		backHome(w, r)
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewFor(d, r).Delete(r.Context(), chi.URLParam(r, "id"))
		backHome(w, r)
	}
}
