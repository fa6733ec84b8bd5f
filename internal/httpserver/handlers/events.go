package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/MrSnakeDoc/marks/internal/controller"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

const pushTimeout = 5 * time.Second

type viewMessage struct {
	Type string `json:"type"`
	HTML string `json:"html"`
}

// Events streams a re-rendered #app fragment to the browser after every
// change of its view.
func Events(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := mw.ClientIDFrom(r.Context())
		ctrl := d.Views.Get(clientID)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: d.AllowedHosts,
		})
		if err != nil {
			d.Logger.Debug("failed to accept websocket", logger.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		defer d.Views.Touch(clientID)

		changes, stop := ctrl.Watch()
		defer stop()

		// the browser never sends anything, CloseRead handles pings and close frames
		ctx := conn.CloseRead(r.Context())

		if err := push(ctx, conn, d, ctrl); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "view closed")
					return
				}
				if err := push(ctx, conn, d, ctrl); err != nil {
					d.Logger.Debug("websocket push failed",
						logger.String("client_id", clientID),
						logger.Error(err))
					return
				}
			}
		}
	}
}

func push(ctx context.Context, conn *websocket.Conn, d deps.Deps, ctrl *controller.Controller) error {
	html, err := d.Renderer.Fragment(ctrl.Snapshot())
	if err != nil {
		d.Logger.Error("failed to render view", logger.Error(err))
		return err
	}
	data, err := json.Marshal(viewMessage{Type: "view", HTML: html})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
