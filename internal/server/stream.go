package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ZapStream upgrades to a websocket and pushes every committed zap as JSON
// Optional pool and caller query parameters filter the stream
func (h *Handlers) ZapStream(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "zap feed is not configured", nil)
	}
	pool := c.QueryParam("pool")
	caller := c.QueryParam("caller")

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	events, err := h.Cache.SubscribeZaps(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to subscribe", nil)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return nil
	}
	defer conn.Close()

	log := h.Logger.WithFields(logrus.Fields{"remote": c.RealIP(), "pool": pool, "caller": caller})
	log.Info("zap stream opened")
	defer log.Info("zap stream closed")

	// The read loop only services control frames and notices the client going away.
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return nil
			}
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !matchesStream(ev, pool, caller) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.WithError(err).Debug("zap stream write failed")
				return nil
			}
		}
	}
}

func matchesStream(ev *models.ZapEvent, pool, caller string) bool {
	if pool != "" && ev.Pool != pool && ev.PoolName != pool {
		return false
	}
	return caller == "" || ev.Caller == caller
}
