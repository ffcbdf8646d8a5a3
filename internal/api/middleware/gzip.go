package middleware

import (
	"io"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

type gzipWriter struct {
	gin.ResponseWriter
	writer *gzip.Writer
}

func (g *gzipWriter) WriteString(s string) (int, error) {
	g.Header().Del("Content-Length")
	return g.writer.Write([]byte(s))
}

func (g *gzipWriter) Write(data []byte) (int, error) {
	g.Header().Del("Content-Length")
	return g.writer.Write(data)
}

func (g *gzipWriter) WriteHeader(code int) {
	g.Header().Del("Content-Length")
	g.ResponseWriter.WriteHeader(code)
}

// Gzip compresses responses for clients that accept it. Requests whose path
// starts with one of skip, and websocket upgrades, pass through untouched.
func Gzip(level int, skip ...string) gin.HandlerFunc {
	pool := sync.Pool{
		New: func() any {
			w, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				w, _ = gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
			}
			return w
		},
	}

	return func(c *gin.Context) {
		if !shouldCompress(c, skip) {
			c.Next()
			return
		}

		gz := pool.Get().(*gzip.Writer)
		gz.Reset(c.Writer)

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")
		c.Writer = &gzipWriter{ResponseWriter: c.Writer, writer: gz}

		defer func() {
			// No body, no gzip trailer
			if c.Writer.Size() < 0 {
				gz.Reset(io.Discard)
			}
			_ = gz.Close()
			pool.Put(gz)
		}()

		c.Next()
	}
}

func shouldCompress(c *gin.Context, skip []string) bool {
	req := c.Request
	if !strings.Contains(req.Header.Get("Accept-Encoding"), "gzip") {
		return false
	}
	if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
		return false
	}
	for _, prefix := range skip {
		if strings.HasPrefix(req.URL.Path, prefix) {
			return false
		}
	}
	return true
}
