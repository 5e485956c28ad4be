package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/callcache/internal/pagecache"
	"github.com/charlesng35/callcache/pkg/response"
)

// PageHandler serves pages through the expiring page cache.
type PageHandler struct {
	pages *pagecache.PageCache
}

// NewPageHandler constructs a PageHandler.
func NewPageHandler(pages *pagecache.PageCache) *PageHandler {
	if pages == nil {
		return nil
	}
	return &PageHandler{pages: pages}
}

// Get looks up the page named by the url query parameter.
func (h *PageHandler) Get(c *gin.Context) {
	url, ok := requiredInput(c, "url", c.Query("url"))
	if !ok {
		return
	}

	page, err := h.pages.Lookup(requestContext(c), url)
	if err != nil {
		response.Error(c, storeError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"url":      page.URL,
		"content":  page.Content,
		"hit":      page.Hit,
		"accesses": page.Accesses,
	})
}

// Count reports how often the url has been requested.
func (h *PageHandler) Count(c *gin.Context) {
	url, ok := requiredInput(c, "url", c.Query("url"))
	if !ok {
		return
	}

	count, err := h.pages.AccessCount(requestContext(c), url)
	if err != nil {
		response.Error(c, storeError(err))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": url, "accesses": count})
}
