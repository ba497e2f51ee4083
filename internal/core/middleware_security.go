package core

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"tradenotify/internal/types"
)

// BodyLimitMiddleware caps the request body at maxBytes. It must run after
// DecompressMiddleware so the cap applies to decoded bytes.
func BodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				JSON(w, r, http.StatusRequestEntityTooLarge, newErrorResponse(r,
					types.ErrCodePayloadTooLarge, "Request body too large", nil))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DecompressMiddleware transparently decodes gzip and zstd request bodies.
// Any other Content-Encoding is rejected with 415.
func (s *Server) DecompressMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding")))
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}

		switch encoding {
		case "", "identity":
			next.ServeHTTP(w, r)
			return

		case "gzip", "x-gzip":
			zr, err := gzip.NewReader(r.Body)
			if err != nil {
				s.Logger.Warn("invalid gzip request body", slog.String("error", err.Error()))
				Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidJSON, "Request body is not valid gzip", err))
				return
			}
			defer zr.Close()
			r.Body = readCloser{Reader: zr, Closer: r.Body}

		case "zstd":
			zr, err := zstd.NewReader(r.Body, zstd.WithDecoderConcurrency(1))
			if err != nil {
				Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidJSON, "Request body is not valid zstd", err))
				return
			}
			defer zr.Close()
			r.Body = readCloser{Reader: zr, Closer: r.Body}

		default:
			Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeUnsupportedEncoding,
				"Unsupported Content-Encoding", nil,
				map[string]any{"supported": []string{"gzip", "zstd"}}))
			return
		}

		r.Header.Del("Content-Encoding")
		r.Header.Del("Content-Length")
		r.ContentLength = -1
		next.ServeHTTP(w, r)
	})
}

type readCloser struct {
	io.Reader
	io.Closer
}

// clientIP returns the first X-Forwarded-For entry when present (the relay
// runs behind a load balancer), else RemoteAddr without the port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
