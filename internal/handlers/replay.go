package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/callcache/internal/cache"
	"github.com/charlesng35/callcache/internal/instrument"
	appErrors "github.com/charlesng35/callcache/pkg/errors"
	"github.com/charlesng35/callcache/pkg/response"
)

// ReplayHandler prints the recorded call history of an operation.
type ReplayHandler struct {
	store cache.Store
}

// NewReplayHandler constructs a ReplayHandler.
func NewReplayHandler(store cache.Store) *ReplayHandler {
	if store == nil {
		return nil
	}
	return &ReplayHandler{store: store}
}

// Get returns the history as JSON, or as plain text with format=text. The operation is a
// wildcard segment so labels of nested packages such as monitoring/checks.Store resolve.
func (h *ReplayHandler) Get(c *gin.Context) {
	operation, ok := requiredInput(c, "operation", strings.TrimPrefix(c.Param("operation"), "/"))
	if !ok {
		return
	}

	history, err := instrument.ReadHistory(requestContext(c), h.store, operation)
	if err != nil {
		response.Error(c, appErrors.ErrStoreUnavailable.WithInternal(err))
		return
	}

	if strings.EqualFold(c.Query("format"), "text") {
		var b strings.Builder
		if err := instrument.WriteText(&b, history); err != nil {
			response.Error(c, err)
			return
		}
		response.Text(c, http.StatusOK, b.String())
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, history, &response.Meta{
		Total:    len(history.Entries),
		Unpaired: history.Unpaired,
	})
}
