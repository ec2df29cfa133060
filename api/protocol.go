package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"prism-board/domain"
	"prism-board/reorder"
)

const requestMaxSize = 64 * 1024 // 64 KiB

type errorResponse struct {
	Error string `json:"error"`
}

type changeBody struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	ListID   string `json:"listId,omitempty"`
}

// POST .../move response body
type moveResponse struct {
	Changes []changeBody `json:"changes"`
}

func newMoveResponse(changes []reorder.Change) moveResponse {
	out := moveResponse{Changes: make([]changeBody, len(changes))}
	for i, ch := range changes {
		out.Changes[i] = changeBody{ID: ch.ID, Position: ch.Position, ListID: ch.ParentID}
	}
	return out
}

type compactResponse struct {
	Lists int `json:"lists"`
	Cards int `json:"cards"`
}

type readAllResponse struct {
	Updated int `json:"updated"`
}

type usersResponse struct {
	Users []domain.Profile `json:"users"`
}

// JSONSerializer encodes and decodes echo payloads with sonic. Decoding rejects
// unknown fields and bodies over requestMaxSize.
type JSONSerializer struct{}

// Serialize writes i as JSON to the response.
func (JSONSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := sonic.ConfigStd.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

// Deserialize reads the request body into i.
func (JSONSerializer) Deserialize(c echo.Context, i any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, requestMaxSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(i); err != nil {
		if errors.Is(err, io.EOF) {
			return echo.NewHTTPError(http.StatusBadRequest, "empty body")
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body").SetInternal(err)
	}
	return nil
}
