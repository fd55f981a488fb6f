package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campusevents/event-api/pkg/middleware/requestid"
)

const metaContextKey = "response_meta"

// Keys written into the envelope meta block.
const (
	MetaCacheHit  = "cache_hit"
	MetaCount     = "count"
	MetaRequestID = "request_id"
	MetaTookMs    = "processing_time_ms"
)

// WithResponseMeta gives each API request a meta map that handlers can
// extend. The request id and processing time are filled in automatically.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta[MetaRequestID] = id
		}
		c.Set(metaContextKey, meta)
		c.Next()
		if _, ok := meta[MetaTookMs]; !ok {
			meta[MetaTookMs] = time.Since(start).Milliseconds()
		}
	}
}

// SetMeta stores one meta value for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	metaFor(c)[key] = value
}

// SetCacheHit marks whether the payload came from the catalog cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, MetaCacheHit, hit)
}

// ExtractMeta returns the meta map for the request, or nil when
// WithResponseMeta did not run and nothing was set.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, ok := c.Get(metaContextKey)
	if !ok {
		return nil
	}
	meta, _ := raw.(map[string]interface{})
	return meta
}

func metaFor(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	if c != nil {
		c.Set(metaContextKey, meta)
	}
	return meta
}
