package middleware

import (
	"github.com/gin-gonic/gin"
)

const CookiesKey = "cookies"

// CookieParser exposes the Cookie header as a name-to-value map. When a name
// appears more than once the first value wins.
func CookieParser() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookies := make(map[string]string)
		for _, ck := range c.Request.Cookies() {
			if _, seen := cookies[ck.Name]; !seen {
				cookies[ck.Name] = ck.Value
			}
		}
		c.Set(CookiesKey, cookies)
		c.Next()
	}
}

func Cookies(c *gin.Context) map[string]string {
	if v, ok := c.Get(CookiesKey); ok {
		if m, ok := v.(map[string]string); ok {
			return m
		}
	}
	return map[string]string{}
}
