// Package transport connects the handler to FastCGI, CGI and plain HTTP.
package transport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phuslu/log"
)

// Router routes every method and path to h. A FastCGI request may carry
// no URI at all, so it reaches h through NoRoute with an empty path rather
// than being redirected.
func Router(h http.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(gin.Recovery(), requestLogger())
	r.Any("/*path", gin.WrapH(h))
	r.NoRoute(gin.WrapH(h))
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
