package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

const (
	responseMetaKey = "response_meta"
	requestStartKey = "request_start"

	// ScoringVersionHeader carries the active scoring configuration version.
	ScoringVersionHeader = "X-Scoring-Config-Version"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetMeta records one metadata entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	meta := ensureMeta(c)
	meta[key] = value
}

// ExtractMeta returns a copy of the metadata with the elapsed processing time.
// It returns nil when WithResponseMeta is not installed.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	raw, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	typed, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(typed)+1)
	for k, v := range typed {
		out[k] = v
	}
	if start, ok := c.Get(requestStartKey); ok {
		if t, ok := start.(time.Time); ok {
			out["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return out
}

// ScoringVersionSource exposes the active scoring configuration.
type ScoringVersionSource interface {
	Current() models.ScoringConfig
}

// ScoringVersion stamps responses with the scoring configuration version
// active when the request started.
func ScoringVersion(source ScoringVersionSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		if source != nil {
			version := source.Current().Version
			c.Header(ScoringVersionHeader, strconv.FormatInt(version, 10))
			SetMeta(c, "scoring_config_version", version)
		}
		c.Next()
	}
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	newMeta := make(map[string]interface{})
	c.Set(responseMetaKey, newMeta)
	return newMeta
}
