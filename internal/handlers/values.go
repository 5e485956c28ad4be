package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/callcache/internal/valuecache"
	appErrors "github.com/charlesng35/callcache/pkg/errors"
	"github.com/charlesng35/callcache/pkg/response"
)

// ValueHandler exposes the instrumented value cache.
type ValueHandler struct {
	cache *valuecache.Cache
}

// NewValueHandler constructs a ValueHandler.
func NewValueHandler(cache *valuecache.Cache) *ValueHandler {
	if cache == nil {
		return nil
	}
	return &ValueHandler{cache: cache}
}

type storeValueRequest struct {
	Value *string `json:"value" validate:"required"`
	Type  string  `json:"type" validate:"valuetype"`
}

// Store saves the posted value and returns its key.
func (h *ValueHandler) Store(c *gin.Context) {
	var req storeValueRequest
	if !bindAndValidate(c, &req) {
		return
	}

	data, err := valuecache.Parse(*req.Value, strings.ToLower(strings.TrimSpace(req.Type)))
	if err != nil {
		response.Error(c, err)
		return
	}

	key, err := h.cache.Store(requestContext(c), data)
	if err != nil {
		response.Error(c, storeError(err))
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"key": key})
}

// Get reads a value back. The as query parameter selects raw (default), str or int.
func (h *ValueHandler) Get(c *gin.Context) {
	key, ok := requiredInput(c, "key", c.Param("key"))
	if !ok {
		return
	}
	ctx := requestContext(c)

	switch strings.ToLower(strings.TrimSpace(c.DefaultQuery("as", "raw"))) {
	case "raw":
		value, ok, err := h.cache.Get(ctx, key)
		if err != nil {
			response.Error(c, storeError(err))
			return
		}
		if !ok {
			response.Error(c, appErrors.ErrValueNotFound)
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", value)
	case "str":
		value, err := h.cache.GetStr(ctx, key)
		if err != nil {
			response.Error(c, storeError(err))
			return
		}
		response.Success(c, http.StatusOK, gin.H{"key": key, "value": value})
	case "int":
		value, err := h.cache.GetInt(ctx, key)
		if err != nil {
			response.Error(c, storeError(err))
			return
		}
		response.Success(c, http.StatusOK, gin.H{"key": key, "value": value})
	default:
		response.Error(c, appErrors.NewBadRequest("as must be one of raw, str, int"))
	}
}

// Flush clears the whole store.
func (h *ValueHandler) Flush(c *gin.Context) {
	if err := h.cache.Flush(requestContext(c)); err != nil {
		response.Error(c, storeError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"flushed": true})
}
