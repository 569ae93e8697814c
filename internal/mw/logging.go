package mw

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cedadev/authgate/internal/httpx"
	"github.com/cedadev/authgate/internal/trace"
)

type LogOpts struct {
	SkipPaths     []string
	RedactHeaders []string
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions
}

func isNoisyPath(p string) bool {
	return p == "/healthz" || p == "/version"
}

func Logger(opts LogOpts) func(http.Handler) http.Handler {
	skip := map[string]struct{}{}
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}
	redact := map[string]struct{}{}
	for _, h := range opts.RedactHeaders {
		redact[strings.ToLower(h)] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			if isPreflight(r) || isNoisyPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := skip[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := httpx.NewRecorder(w)
			next.ServeHTTP(rec, r)
			dur := time.Since(start)

			// one-liner summary
			slog.Info("req",
				"trace", trace.From(r.Context()),
				"m", r.Method,
				"path", r.URL.Path,
				"status", rec.Status,
				"ms", dur.Milliseconds(),
				"bytes", rec.Bytes,
			)

			// on error, add a compact block with redacted headers
			if rec.Status >= 400 {
				h := map[string]string{}
				for k, vv := range r.Header {
					if len(vv) == 0 {
						continue
					}
					vl := vv[0]
					if _, ok := redact[strings.ToLower(k)]; ok || redactedHeader(k) {
						vl = "***redacted***"
					}
					h[k] = vl
				}
				slog.Error("req_detail",
					"trace", trace.From(r.Context()),
					"m", r.Method, "path", r.URL.Path,
					"status", rec.Status, "ms", dur.Milliseconds(),
					"headers", h,
				)
			}
		})
	}
}

// redactedHeader hides anything carrying credential material.
func redactedHeader(k string) bool {
	lk := strings.ToLower(k)
	return lk == "authorization" || lk == "cookie" || strings.HasPrefix(lk, "x-api-key")
}
