package stream

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"prism-board/api"
	"prism-board/domain"
)

// Boards serves authorised, optionally member-filtered board snapshots.
type Boards interface {
	GetBoard(ctx context.Context, userID, boardID, member string) (domain.BoardSnapshot, error)
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

type handler struct {
	boards    Boards
	auth      Authenticator
	hub       *Hub
	log       *log.Logger
	keepAlive time.Duration
}

// Register wires the SSE endpoint. keepAlive is the interval between ": ping" comments.
func Register(e *echo.Echo, boards Boards, auth Authenticator, hub *Hub, logger *log.Logger, keepAlive time.Duration) {
	h := &handler{boards: boards, auth: auth, hub: hub, log: logger, keepAlive: keepAlive}
	e.GET("/stream/boards/:boardId", h.streamBoard)
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
}

func (h *handler) streamBoard(c echo.Context) error {
	userID, err := h.auth.UserIDFromAuthHeader(api.AuthHeader(c.Request()))
	if err != nil {
		return c.String(http.StatusUnauthorized, err.Error())
	}
	boardID := c.Param("boardId")
	member := c.QueryParam("member")
	ctx := c.Request().Context()

	// Subscribe before the first fetch so no change between the two is missed.
	updates, unsubscribe := h.hub.Subscribe(boardID)
	defer unsubscribe()

	snap, err := h.boards.GetBoard(ctx, userID, boardID, member)
	if err != nil {
		return c.String(statusFor(err), err.Error())
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	logger := h.log.WithFields(log.Fields{"boardId": boardID, "userId": userID})
	if err := writeSnapshot(w, snap); err != nil {
		logger.WithError(err).Debug("stream write failed")
		return nil
	}

	ping := time.NewTicker(h.keepAlive)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ping.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return nil
			}
			w.Flush()
		case <-updates:
			snap, err := h.boards.GetBoard(ctx, userID, boardID, member)
			switch {
			case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
				_, _ = w.Write([]byte("event: revoked\ndata: {}\n\n"))
				w.Flush()
				return nil
			case err != nil:
				if ctx.Err() == nil {
					logger.WithError(err).Error("refetch board")
				}
				continue
			}
			if err := writeSnapshot(w, snap); err != nil {
				logger.WithError(err).Debug("stream write failed")
				return nil
			}
		}
	}
}

func writeSnapshot(w *echo.Response, snap domain.BoardSnapshot) error {
	data, err := sonic.Marshal(snap)
	if err != nil {
		return err
	}
	buf := make([]byte, 0, len(data)+8)
	buf = append(buf, "data: "...)
	buf = append(buf, data...)
	buf = append(buf, '\n', '\n')
	if _, err := w.Write(buf); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
