package middleware

import (
	"compress/gzip"
	"io"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	Level         int      // gzip compression level (1-9, 9 is best compression)
	ExcludedPaths []string // paths served uncompressed
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Level: 6,
	}
}

// CompressionMiddleware provides gzip compression for HTTP responses
type CompressionMiddleware struct {
	config   CompressionConfig
	excluded map[string]struct{}
	pool     sync.Pool // Pool of gzip writers for better performance
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	if config.Level < gzip.BestSpeed || config.Level > gzip.BestCompression {
		config.Level = DefaultCompressionConfig().Level
	}

	excluded := make(map[string]struct{}, len(config.ExcludedPaths))
	for _, path := range config.ExcludedPaths {
		excluded[path] = struct{}{}
	}

	level := config.Level
	return &CompressionMiddleware{
		config:   config,
		excluded: excluded,
		pool: sync.Pool{
			New: func() interface{} {
				gz, _ := gzip.NewWriterLevel(io.Discard, level)
				return gz
			},
		},
	}
}

// Handler returns a Gin middleware function for response compression
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !clientAcceptsGzip(c) {
			c.Next()
			return
		}
		if _, skip := cm.excluded[c.Request.URL.Path]; skip {
			c.Next()
			return
		}

		gz := cm.pool.Get().(*gzip.Writer)
		gz.Reset(c.Writer)

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")

		original := c.Writer
		c.Writer = &gzipResponseWriter{ResponseWriter: original, gzipWriter: gz}

		defer func() {
			gz.Close()
			cm.pool.Put(gz)
			c.Writer = original
		}()

		c.Next()
	}
}

// clientAcceptsGzip checks if the client accepts gzip compression
func clientAcceptsGzip(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept-Encoding"), "gzip")
}

// gzipResponseWriter wraps a gin.ResponseWriter with gzip compression
type gzipResponseWriter struct {
	gin.ResponseWriter
	gzipWriter *gzip.Writer
}

// Write writes data through the gzip writer
func (gzw *gzipResponseWriter) Write(data []byte) (int, error) {
	return gzw.gzipWriter.Write(data)
}

// WriteString writes a string through the gzip writer
func (gzw *gzipResponseWriter) WriteString(s string) (int, error) {
	return gzw.gzipWriter.Write([]byte(s))
}

// Flush flushes buffered compressed data to the client
func (gzw *gzipResponseWriter) Flush() {
	gzw.gzipWriter.Flush()
	gzw.ResponseWriter.Flush()
}
