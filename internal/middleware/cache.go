package middleware

import "github.com/gin-gonic/gin"

// NoStore keeps exam papers, tokens and results out of shared lab proxies
// and the browser cache.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, private")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
