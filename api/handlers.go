package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"prism-board/domain"
	"prism-board/reorder"
)

const (
	ctxUserID       = "userID"
	ctxAuthDuration = "authDuration"
)

type handlers struct {
	svc     Service
	auth    Authenticator
	deduper Deduper
	log     *log.Logger
}

// Register wires up all API routes on the provided Echo instance. deduper may be
// nil, in which case Idempotency-Key headers are ignored.
func Register(e *echo.Echo, svc Service, auth Authenticator, deduper Deduper, logger *log.Logger) {
	e.JSONSerializer = JSONSerializer{}
	h := &handlers{svc: svc, auth: auth, deduper: deduper, log: logger}

	e.GET("/healthz", healthz)

	g := e.Group("/api", h.authenticate)
	g.GET("/users", h.listUsers)
	g.PUT("/profile", h.upsertProfile)

	g.GET("/boards", h.listBoards)
	g.POST("/boards", h.createBoard)
	g.GET("/boards/:boardId", h.getBoard)
	g.DELETE("/boards/:boardId", h.deleteBoard)
	g.POST("/boards/:boardId/members", h.addBoardMember)
	g.DELETE("/boards/:boardId/members/:userId", h.removeBoardMember)
	g.GET("/boards/:boardId/calendar", h.calendar)
	g.POST("/boards/:boardId/compact", h.compact)
	g.GET("/boards/:boardId/labels", h.listLabels)
	g.POST("/boards/:boardId/labels", h.createLabel)
	g.POST("/boards/:boardId/lists", h.createList)
	g.POST("/boards/:boardId/lists/move", h.moveList)

	g.PATCH("/lists/:listId", h.renameList)
	g.DELETE("/lists/:listId", h.deleteList)
	g.PUT("/lists/:listId/members/:userId", h.addListMember)
	g.DELETE("/lists/:listId/members/:userId", h.removeListMember)
	g.POST("/lists/:listId/cards", h.createCard)

	g.GET("/cards/:cardId", h.getCard)
	g.PATCH("/cards/:cardId", h.updateCard)
	g.DELETE("/cards/:cardId", h.deleteCard)
	g.POST("/cards/:cardId/move", h.moveCard)
	g.PUT("/cards/:cardId/labels/:labelId", h.attachLabel)
	g.DELETE("/cards/:cardId/labels/:labelId", h.detachLabel)
	g.PUT("/cards/:cardId/members/:userId", h.assignMember)
	g.DELETE("/cards/:cardId/members/:userId", h.unassignMember)
	g.POST("/cards/:cardId/checklist", h.addChecklistItem)
	g.POST("/cards/:cardId/comments", h.addComment)

	g.PATCH("/checklist/:itemId", h.updateChecklistItem)
	g.DELETE("/checklist/:itemId", h.deleteChecklistItem)
	g.PATCH("/comments/:commentId", h.editComment)
	g.DELETE("/comments/:commentId", h.deleteComment)

	g.GET("/notifications", h.notifications)
	g.POST("/notifications/read-all", h.markAllRead)
	g.POST("/notifications/:id/read", h.markRead)
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *handlers) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		userID, err := h.auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		c.Set(ctxAuthDuration, time.Since(start))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		c.Set(ctxUserID, userID)
		return next(c)
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(ctxUserID).(string)
	return id
}

func authDuration(c echo.Context) time.Duration {
	d, _ := c.Get(ctxAuthDuration).(time.Duration)
	return d
}

func (h *handlers) fail(c echo.Context, err error) error {
	return writeError(c, h.log, err)
}

// respond writes v with status, or maps err.
func respond[T any](h *handlers, c echo.Context, status int, v T, err error) error {
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(status, v)
}

func (h *handlers) noContent(c echo.Context, err error) error {
	if err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) listUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	return respond(h, c, http.StatusOK, usersResponse{Users: users}, err)
}

func (h *handlers) upsertProfile(c echo.Context) error {
	var req domain.ProfileRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	p, err := h.svc.UpsertProfile(c.Request().Context(), userID(c), req)
	return respond(h, c, http.StatusOK, p, err)
}

func (h *handlers) listBoards(c echo.Context) error {
	boards, err := h.svc.ListBoards(c.Request().Context(), userID(c))
	return respond(h, c, http.StatusOK, boards, err)
}

func (h *handlers) createBoard(c echo.Context) error {
	var req domain.CreateBoardRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	b, err := h.svc.CreateBoard(c.Request().Context(), userID(c), req)
	return respond(h, c, http.StatusCreated, b, err)
}

func (h *handlers) getBoard(c echo.Context) error {
	ctx := c.Request().Context()
	metrics, spanCtx := newRequestMetrics(ctx, h.log, snapshotSpanName, snapshotEventName, c.Path())
	c.SetRequest(c.Request().WithContext(spanCtx))
	var logErr error
	defer func() {
		metrics.Log(c.Response().Status, logErr)
	}()
	metrics.ObserveAuth(authDuration(c))

	member := c.QueryParam("member")
	metrics.SetFlag("member_filter", member != "")

	storeStart := time.Now()
	snap, svcErr := h.svc.GetBoard(spanCtx, userID(c), c.Param("boardId"), member)
	metrics.ObserveStore(time.Since(storeStart))
	if svcErr != nil {
		metrics.SetErrorStage("snapshot")
		if statusFor(svcErr) >= http.StatusInternalServerError {
			logErr = svcErr
		}
		return h.fail(c, svcErr)
	}
	metrics.SetCount("lists_returned", len(snap.Lists))
	cards := 0
	for _, l := range snap.Lists {
		cards += len(l.Cards)
	}
	metrics.SetCount("cards_returned", cards)

	encodeStart := time.Now()
	err := c.JSON(http.StatusOK, snap)
	metrics.ObserveEncode(time.Since(encodeStart))
	if err != nil {
		metrics.SetErrorStage("encode_response")
		logErr = err
	}
	return err
}

func (h *handlers) deleteBoard(c echo.Context) error {
	return h.noContent(c, h.svc.DeleteBoard(c.Request().Context(), userID(c), c.Param("boardId")))
}

func (h *handlers) addBoardMember(c echo.Context) error {
	var req domain.MemberRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	return h.noContent(c, h.svc.AddBoardMember(c.Request().Context(), userID(c), c.Param("boardId"), req))
}

func (h *handlers) removeBoardMember(c echo.Context) error {
	return h.noContent(c, h.svc.RemoveBoardMember(c.Request().Context(), userID(c), c.Param("boardId"), c.Param("userId")))
}

func (h *handlers) calendar(c echo.Context) error {
	events, err := h.svc.Calendar(c.Request().Context(), userID(c), c.Param("boardId"), c.QueryParam("member"))
	return respond(h, c, http.StatusOK, events, err)
}

func (h *handlers) compact(c echo.Context) error {
	res, err := h.svc.Compact(c.Request().Context(), userID(c), c.Param("boardId"))
	return respond(h, c, http.StatusOK, compactResponse{Lists: res.Lists, Cards: res.Cards}, err)
}

func (h *handlers) listLabels(c echo.Context) error {
	labels, err := h.svc.ListLabels(c.Request().Context(), userID(c), c.Param("boardId"))
	return respond(h, c, http.StatusOK, labels, err)
}

func (h *handlers) createLabel(c echo.Context) error {
	var req domain.LabelRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	l, err := h.svc.CreateLabel(c.Request().Context(), userID(c), c.Param("boardId"), req)
	return respond(h, c, http.StatusCreated, l, err)
}

func (h *handlers) createList(c echo.Context) error {
	var req domain.TitleRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	l, err := h.svc.CreateList(c.Request().Context(), userID(c), c.Param("boardId"), req)
	return respond(h, c, http.StatusCreated, l, err)
}

func (h *handlers) moveList(c echo.Context) error {
	var req domain.MoveListRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	boardID := c.Param("boardId")
	return h.move(c, func(ctx context.Context) ([]reorder.Change, error) {
		return h.svc.MoveList(ctx, userID(c), boardID, req)
	})
}

func (h *handlers) moveCard(c echo.Context) error {
	var req domain.MoveCardRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	cardID := c.Param("cardId")
	return h.move(c, func(ctx context.Context) ([]reorder.Change, error) {
		return h.svc.MoveCard(ctx, userID(c), cardID, req)
	})
}

// move runs fn once per Idempotency-Key. A replayed key is rejected with 409 and
// a failed move releases the key.
func (h *handlers) move(c echo.Context, fn func(context.Context) ([]reorder.Change, error)) error {
	ctx := c.Request().Context()
	metrics, spanCtx := newRequestMetrics(ctx, h.log, moveSpanName, moveEventName, c.Path())
	c.SetRequest(c.Request().WithContext(spanCtx))
	var logErr error
	defer func() {
		metrics.Log(c.Response().Status, logErr)
	}()
	metrics.ObserveAuth(authDuration(c))

	uid := userID(c)
	key := c.Request().Header.Get(headerIdempotencyKey)
	dedupe := key != "" && h.deduper != nil
	metrics.SetFlag("idempotency_key", dedupe)
	if dedupe {
		added, dErr := h.deduper.Add(spanCtx, uid, key)
		if dErr != nil {
			metrics.SetErrorStage("dedupe")
			logErr = dErr
			return h.fail(c, dErr)
		}
		if !added {
			metrics.SetErrorStage("duplicate")
			return h.fail(c, errDuplicateRequest)
		}
	}

	storeStart := time.Now()
	changes, svcErr := fn(spanCtx)
	metrics.ObserveStore(time.Since(storeStart))
	if svcErr != nil {
		metrics.SetErrorStage("move")
		if dedupe {
			if rErr := h.deduper.Remove(context.WithoutCancel(spanCtx), uid, key); rErr != nil {
				h.log.WithError(rErr).WithField("key", key).Warn("release idempotency key")
			}
		}
		if statusFor(svcErr) >= http.StatusInternalServerError {
			logErr = svcErr
		}
		return h.fail(c, svcErr)
	}
	metrics.SetCount("changes", len(changes))
	return c.JSON(http.StatusOK, newMoveResponse(changes))
}

func (h *handlers) renameList(c echo.Context) error {
	var req domain.TitleRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	return h.noContent(c, h.svc.RenameList(c.Request().Context(), userID(c), c.Param("listId"), req))
}

func (h *handlers) deleteList(c echo.Context) error {
	return h.noContent(c, h.svc.DeleteList(c.Request().Context(), userID(c), c.Param("listId")))
}

func (h *handlers) addListMember(c echo.Context) error {
	return h.noContent(c, h.svc.AddListMember(c.Request().Context(), userID(c), c.Param("listId"), c.Param("userId")))
}

func (h *handlers) removeListMember(c echo.Context) error {
	return h.noContent(c, h.svc.RemoveListMember(c.Request().Context(), userID(c), c.Param("listId"), c.Param("userId")))
}

func (h *handlers) createCard(c echo.Context) error {
	var req domain.TitleRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	card, err := h.svc.CreateCard(c.Request().Context(), userID(c), c.Param("listId"), req)
	return respond(h, c, http.StatusCreated, card, err)
}

func (h *handlers) getCard(c echo.Context) error {
	detail, err := h.svc.GetCard(c.Request().Context(), userID(c), c.Param("cardId"))
	return respond(h, c, http.StatusOK, detail, err)
}

func (h *handlers) updateCard(c echo.Context) error {
	var p domain.CardPatch
	if err := c.Bind(&p); err != nil {
		return h.fail(c, err)
	}
	card, err := h.svc.UpdateCard(c.Request().Context(), userID(c), c.Param("cardId"), p)
	return respond(h, c, http.StatusOK, card, err)
}

func (h *handlers) deleteCard(c echo.Context) error {
	return h.noContent(c, h.svc.DeleteCard(c.Request().Context(), userID(c), c.Param("cardId")))
}

func (h *handlers) attachLabel(c echo.Context) error {
	return h.noContent(c, h.svc.AttachLabel(c.Request().Context(), userID(c), c.Param("cardId"), c.Param("labelId")))
}

func (h *handlers) detachLabel(c echo.Context) error {
	return h.noContent(c, h.svc.DetachLabel(c.Request().Context(), userID(c), c.Param("cardId"), c.Param("labelId")))
}

func (h *handlers) assignMember(c echo.Context) error {
	return h.noContent(c, h.svc.AssignMember(c.Request().Context(), userID(c), c.Param("cardId"), c.Param("userId")))
}

func (h *handlers) unassignMember(c echo.Context) error {
	return h.noContent(c, h.svc.UnassignMember(c.Request().Context(), userID(c), c.Param("cardId"), c.Param("userId")))
}

func (h *handlers) addChecklistItem(c echo.Context) error {
	var req domain.ChecklistItemRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	item, err := h.svc.AddChecklistItem(c.Request().Context(), userID(c), c.Param("cardId"), req)
	return respond(h, c, http.StatusCreated, item, err)
}

func (h *handlers) updateChecklistItem(c echo.Context) error {
	var p domain.ChecklistItemPatch
	if err := c.Bind(&p); err != nil {
		return h.fail(c, err)
	}
	item, err := h.svc.UpdateChecklistItem(c.Request().Context(), userID(c), c.Param("itemId"), p)
	return respond(h, c, http.StatusOK, item, err)
}

func (h *handlers) deleteChecklistItem(c echo.Context) error {
	return h.noContent(c, h.svc.DeleteChecklistItem(c.Request().Context(), userID(c), c.Param("itemId")))
}

func (h *handlers) addComment(c echo.Context) error {
	var req domain.CommentRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	comment, err := h.svc.AddComment(c.Request().Context(), userID(c), c.Param("cardId"), req)
	return respond(h, c, http.StatusCreated, comment, err)
}

func (h *handlers) editComment(c echo.Context) error {
	var req domain.CommentRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, err)
	}
	comment, err := h.svc.EditComment(c.Request().Context(), userID(c), c.Param("commentId"), req)
	return respond(h, c, http.StatusOK, comment, err)
}

func (h *handlers) deleteComment(c echo.Context) error {
	return h.noContent(c, h.svc.DeleteComment(c.Request().Context(), userID(c), c.Param("commentId")))
}

func (h *handlers) notifications(c echo.Context) error {
	list, err := h.svc.Notifications(c.Request().Context(), userID(c))
	return respond(h, c, http.StatusOK, list, err)
}

func (h *handlers) markRead(c echo.Context) error {
	return h.noContent(c, h.svc.MarkNotificationRead(c.Request().Context(), userID(c), c.Param("id")))
}

func (h *handlers) markAllRead(c echo.Context) error {
	n, err := h.svc.MarkAllNotificationsRead(c.Request().Context(), userID(c))
	return respond(h, c, http.StatusOK, readAllResponse{Updated: n}, err)
}
