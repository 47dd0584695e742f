package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

type responseMeta struct {
	start    time.Time
	cacheHit *bool
}

// ResponseMeta starts the per-request timer used by Meta.
func ResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{start: time.Now()})
		c.Next()
	}
}

// SetCacheHit marks whether the payload of this request came from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if m := currentMeta(c); m != nil {
		m.cacheHit = &hit
	}
}

// Meta renders the envelope meta block: cache_hit when known and processing_time_ms.
func Meta(c *gin.Context) map[string]interface{} {
	m := currentMeta(c)
	if m == nil {
		return nil
	}
	out := map[string]interface{}{"processing_time_ms": time.Since(m.start).Milliseconds()}
	if m.cacheHit != nil {
		out["cache_hit"] = *m.cacheHit
	}
	return out
}

func currentMeta(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	value, ok := c.Get(responseMetaKey)
	if !ok {
		return nil
	}
	m, _ := value.(*responseMeta)
	return m
}
