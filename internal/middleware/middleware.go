// Package middleware provides HTTP middleware for the gateway.
package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"
)

// healthPaths are probed by the platform every few seconds; their request
// lines are logged at DEBUG.
var healthPaths = map[string]bool{"/health": true, "/healthz": true}

// Logging returns middleware that logs one line per request with method,
// path, status, duration, remote address and the storefront session id.
// Server errors are logged at WARN.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrap(w)

			next.ServeHTTP(rw, r)

			level := slog.LevelInfo
			switch {
			case rw.status >= http.StatusInternalServerError:
				level = slog.LevelWarn
			case healthPaths[r.URL.Path]:
				level = slog.LevelDebug
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			}
			if sid := r.Header.Get("X-Session-Id"); sid != "" {
				attrs = append(attrs, slog.String("session_id", sid))
			}
			logger.LogAttrs(r.Context(), level, "request", attrs...)
		})
	}
}

// internalErrorBody matches the handler error envelope.
const internalErrorBody = `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}` + "\n"

// Recovery returns middleware that turns a panic into a logged stack trace
// and a 500 error envelope. Nothing is written when the handler already
// started its response.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrap(w)
			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}
				logger.ErrorContext(r.Context(), "panic recovered",
					slog.Any("error", err),
					slog.String("path", r.URL.Path),
					slog.String("method", r.Method),
					slog.String("stack", string(debug.Stack())),
				)
				if rw.wroteHeader {
					return
				}
				rw.Header().Set("Content-Type", "application/json")
				rw.WriteHeader(http.StatusInternalServerError)
				io.WriteString(rw, internalErrorBody)
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

// Headers the storefront may send cross-origin.
var corsAllowedHeaders = strings.Join([]string{
	"Content-Type",
	"Authorization",
	"X-Requested-With",
	"X-Session-Id",
	"Nonce",
	"X-WC-Store-API-Nonce",
}, ", ")

// Headers the storefront needs to read back.
var corsExposedHeaders = "X-Session-Id, Nonce"

// CORS returns middleware that admits credentialed requests from the given
// origins. An entry of the form "*.example.dev" matches any subdomain of
// example.dev. Requests without an Origin header pass through untouched.
// Preflights from other origins are refused with 403.
func CORS(allowed []string, logger *slog.Logger) func(http.Handler) http.Handler {
	exact := make(map[string]bool, len(allowed))
	var suffixes []string
	for _, o := range allowed {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		switch {
		case o == "":
		case strings.HasPrefix(o, "*."):
			suffixes = append(suffixes, o[1:])
		default:
			exact[o] = true
		}
	}
	match := func(origin string) bool {
		if exact[origin] {
			return true
		}
		for _, suf := range suffixes {
			if strings.HasSuffix(origin, suf) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Add("Vary", "Origin")
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if !match(origin) {
				logger.WarnContext(r.Context(), "blocked by CORS", slog.String("origin", origin))
				if preflight {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", corsExposedHeaders)
			if preflight {
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter records the status written through it.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(status)
	}
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// wrap reuses w when an outer middleware already wrapped it, so every layer
// sees the same status.
func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

// Flush passes through so streamed MCP responses reach the client.
func (w *responseWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Chain combines multiple middleware into a single middleware.
// Middleware is applied in order: first middleware wraps the last.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
