package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marks/internal/controller"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/ui"
)

// Pinger reports whether the bookmark store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Authenticator completes OAuth flows started by a controller.
type Authenticator interface {
	Callback(ctx context.Context, clientID, provider, state, code string) (*domain.Session, error)
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time     // for testing, defaults to time.Now
	AllowedHosts   []string             // Host headers allowed to access the page
	AllowedCIDRS   []string             // IPs allowed to access healthz/readyz endpoints
	TrustProxy     bool                 // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CookieSecure   bool                 // set the Secure flag on the client cookie
	Views          *controller.Registry // one controller per browser
	Auth           Authenticator        // OAuth callback handling
	Renderer       *ui.Renderer         // HTML page and fragments
	Store          Pinger               // bookmark store, checked by readyz
	ReadyWait      time.Duration        // how long a page waits for a new view to resolve its session
	AuthRateBurst  int                  // auth requests allowed in a burst per IP
	AuthRatePerMin int                  // auth refill rate per IP
}
