package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/callcache/pkg/errors"
	"github.com/charlesng35/callcache/pkg/response"
)

// requestContext returns the context store calls run under. Handlers invoked without an
// HTTP request, as in unit tests, get a background context.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// requiredInput reads a trimmed value and writes a 400 naming it when it is empty.
// Store keys, page URLs and operation labels all pass through here.
func requiredInput(c *gin.Context, name, value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		response.Error(c, appErrors.NewBadRequest(name+" is required"))
		return "", false
	}
	return value, true
}

// storeError keeps AppErrors and reports anything else as an unavailable store.
func storeError(err error) error {
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.ErrStoreUnavailable.WithInternal(err)
}
