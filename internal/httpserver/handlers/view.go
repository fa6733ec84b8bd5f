package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marks/internal/controller"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

const defaultReadyWait = 2 * time.Second

// viewFor returns the caller's controller, giving a freshly created one a
// moment to resolve its session so the first render is not a loading page.
func viewFor(d deps.Deps, r *http.Request) *controller.Controller {
	ctrl := d.Views.Get(mw.ClientIDFrom(r.Context()))

	wait := d.ReadyWait
	if wait <= 0 {
		wait = defaultReadyWait
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctrl.Ready():
	case <-timer.C:
	case <-r.Context().Done():
	}
	return ctrl
}

// backHome sends the browser back to the page after an action.
func backHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
