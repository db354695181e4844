package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"inventory/httperr"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const BodyLimit int64 = 100 << 10

const (
	JSONBodyKey = "jsonBody"
	FormBodyKey = "formBody"
)

// JSONBody parses application/json bodies into c.Keys[JSONBodyKey]. The raw
// bytes are cached under gin.BodyBytesKey and the request body is rewound, so
// handlers can still bind into their own structs. A second JSONBody in the
// chain sees the cached body and does nothing.
func JSONBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, parsed := c.Get(JSONBodyKey); parsed {
			c.Next()
			return
		}
		if !hasBody(c.Request) || mediaType(c.Request) != binding.MIMEJSON {
			c.Next()
			return
		}

		raw, err := readBody(c, limit)
		if err != nil {
			httperr.Fail(c, err)
			return
		}

		var payload any = map[string]any{}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
			// Only objects and arrays are accepted at the top level.
			if trimmed[0] != '{' && trimmed[0] != '[' {
				httperr.Fail(c, httperr.BadRequest("Unexpected token in JSON body"))
				return
			}
			if !json.Valid(trimmed) {
				httperr.Fail(c, httperr.BadRequest("Malformed JSON in request body"))
				return
			}
			if err := binding.JSON.BindBody(trimmed, &payload); err != nil {
				httperr.Fail(c, httperr.Wrap(http.StatusBadRequest, "Malformed JSON in request body", err))
				return
			}
		}

		c.Set(JSONBodyKey, payload)
		c.Next()
	}
}

// URLEncodedBody parses flat application/x-www-form-urlencoded bodies into
// c.Request.PostForm. Nested keys such as a[b]=1 are kept as literal names.
func URLEncodedBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, parsed := c.Get(FormBodyKey); parsed {
			c.Next()
			return
		}
		if !hasBody(c.Request) || mediaType(c.Request) != binding.MIMEPOSTForm {
			c.Next()
			return
		}

		if _, err := readBody(c, limit); err != nil {
			httperr.Fail(c, err)
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			httperr.Fail(c, httperr.Wrap(http.StatusBadRequest, "Malformed form body", err))
			return
		}

		c.Set(FormBodyKey, c.Request.PostForm)
		c.Next()
	}
}

func JSONPayload(c *gin.Context) (any, bool) {
	return c.Get(JSONBodyKey)
}

func readBody(c *gin.Context, limit int64) ([]byte, error) {
	if cached, ok := c.Get(gin.BodyBytesKey); ok {
		if raw, ok := cached.([]byte); ok {
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			return raw, nil
		}
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, httperr.Wrap(http.StatusRequestEntityTooLarge, "request entity too large", err)
		}
		return nil, httperr.Wrap(http.StatusBadRequest, "could not read request body", err)
	}

	c.Set(gin.BodyBytesKey, raw)
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	return raw, nil
}

func hasBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	return r.ContentLength != 0
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}
