package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginCheck từ chối request ghi (POST...) có header Origin/Referer không thuộc
// danh sách tin cậy. Request không gửi Origin (curl, server-to-server) được cho qua,
// các đường dẫn có tiền tố trong exempt (callback form_post từ nhà cung cấp) cũng vậy.
func OriginCheck(trusted []string, exempt ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(trusted))
	for _, o := range trusted {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		for _, prefix := range exempt {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		origin := c.GetHeader("Origin")
		if origin == "" || origin == "null" {
			origin = refererOrigin(c.GetHeader("Referer"))
		}
		if origin == "" {
			c.Next()
			return
		}

		if _, ok := allowed[strings.TrimRight(origin, "/")]; !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid origin"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func refererOrigin(referer string) string {
	i := strings.Index(referer, "://")
	if i < 0 {
		return ""
	}
	rest := referer[i+3:]
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		rest = rest[:j]
	}
	return referer[:i+3] + rest
}
