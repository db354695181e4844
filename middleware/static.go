package middleware

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"inventory/httperr"

	"github.com/gin-gonic/gin"
)

// Static serves files under dir for GET and HEAD requests whose path starts
// with prefix, and stops the chain. Missing files and directories are 404.
// Other methods under the prefix fall through to the router.
func Static(prefix, dir string) gin.HandlerFunc {
	prefix = "/" + strings.Trim(prefix, "/")

	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if p != prefix && !strings.HasPrefix(p, prefix+"/") {
			c.Next()
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}

		rel := path.Clean("/" + strings.TrimPrefix(p, prefix))
		if rel == "/" {
			httperr.Fail(c, httperr.NotFound("File not found"))
			return
		}

		f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			httperr.Fail(c, httperr.NotFound("File not found"))
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			httperr.Fail(c, httperr.NotFound("File not found"))
			return
		}

		// ServeContent handles Range, conditional requests and Content-Type.
		http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
		c.Abort()
	}
}
