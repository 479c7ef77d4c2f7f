package logging

import (
	"fmt"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger puts a logger carrying Cloud Trace metadata and the request ID into the request context.
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(traceparentHeader)
			project := resolveProjectID()
			reqID := chimiddleware.GetReqID(r.Context())

			traceID := traceResource(header, project)
			if traceID == "" {
				traceID = reqID
			}
			ctx := contextWithTraceID(r.Context(), traceID)
			ctx = WithLogger(ctx, loggerWithTrace(Logger(), header, project, reqID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLogger writes one summary line per request with the fields Cloud Logging
// renders as an HTTP request entry.
func AccessLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			LoggerFromContext(r.Context()).Info("request completed",
				zap.Dict("httpRequest",
					zap.String("requestMethod", r.Method),
					zap.String("requestUrl", r.URL.RequestURI()),
					zap.Int("status", status),
					zap.Int("responseSize", ww.BytesWritten()),
					zap.String("userAgent", r.UserAgent()),
					zap.String("remoteIp", r.RemoteAddr),
					zap.String("latency", fmt.Sprintf("%.6fs", time.Since(start).Seconds())),
				),
			)
		})
	}
}
