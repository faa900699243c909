package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/kestrel/internal/service"
)

type contextKey string

const (
	// TraceIDKey is the context key for trace ID.
	TraceIDKey contextKey = "traceID"

	// RequestIDKey is the context key for request ID.
	RequestIDKey contextKey = "requestID"

	reviewLogKey contextKey = "reviewLog"

	// RequestIDHeader is the HTTP header for request ID.
	RequestIDHeader = "X-Request-ID"

	// TraceIDHeader is the HTTP header for trace ID.
	TraceIDHeader = "X-Trace-ID"

	// ReviewIDHeader carries the id of the review a request ran.
	ReviewIDHeader = "X-Review-ID"
)

var tracer = otel.Tracer("kestrel-api")

// reviewLog collects what a review handler did so the request log line and
// span can carry it.
type reviewLog struct {
	id        string
	rules     string
	outcomes  int
	persisted bool
}

// noteReview records report on the request's review log and sets the review
// id header. It is a no-op outside LoggingMiddleware.
func noteReview(w http.ResponseWriter, r *http.Request, report *service.Report, persisted bool) {
	w.Header().Set(ReviewIDHeader, report.ID)
	if rl, ok := r.Context().Value(reviewLogKey).(*reviewLog); ok {
		rl.id = report.ID
		rl.rules = report.RuleVersion
		rl.outcomes = len(report.Outcomes)
		rl.persisted = persisted
	}
}

// TracingMiddleware starts a span per request and propagates request and
// trace ids. Spans are renamed to the matched route once routing is done.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
				attribute.String("request.id", requestID),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		if !span.SpanContext().TraceID().IsValid() {
			traceID = requestID
		}

		ctx = context.WithValue(ctx, RequestIDKey, requestID)
		ctx = context.WithValue(ctx, TraceIDKey, traceID)

		w.Header().Set(RequestIDHeader, requestID)
		w.Header().Set(TraceIDHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))

		if route, vertical := routeOf(r); route != "" {
			span.SetName(r.Method + " " + route)
			span.SetAttributes(attribute.String("http.route", route))
			if vertical != "" {
				span.SetAttributes(attribute.String("kestrel.vertical", vertical))
			}
		}
	})
}

// LoggingMiddleware writes one structured line per request. Review and
// evaluate calls add the review id, rule version and outcome count.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rl := &reviewLog{}
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), reviewLogKey, rl)))

		route, vertical := routeOf(r)
		requestID, _ := r.Context().Value(RequestIDKey).(string)

		attrs := []any{
			"method", r.Method,
			"route", route,
			"vertical", vertical,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestID,
			"trace_id", GetTraceID(r.Context()),
		}
		if rl.id != "" {
			attrs = append(attrs,
				"review_id", rl.id,
				"rule_version", rl.rules,
				"outcomes", rl.outcomes,
				"persisted", rl.persisted,
			)
		}

		level := slog.LevelInfo
		if rw.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(r.Context(), level, "http request", attrs...)
	})
}

// routeOf returns the matched route pattern and vertical. The router fills
// them in after the outer middleware has started, so read them afterwards.
func routeOf(r *http.Request) (route, vertical string) {
	rc := chi.RouteContext(r.Context())
	if rc == nil {
		return "", ""
	}
	return rc.RoutePattern(), rc.URLParam("vertical")
}

// CORSMiddleware lets browser review consoles call the API. An empty origin
// list allows any origin; otherwise only listed origins get CORS headers.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	wildcard := len(origins) == 0
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := wildcard || slices.ContainsFunc(origins, func(o string) bool {
				return strings.EqualFold(o, origin)
			})

			if origin != "" && allowed {
				h := w.Header()
				if wildcard {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
				h.Set("Access-Control-Expose-Headers", strings.Join([]string{RequestIDHeader, TraceIDHeader, ReviewIDHeader}, ", "))
				h.Set("Access-Control-Max-Age", "600")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RecoverMiddleware turns a panicking rule or handler into a 500.
func RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				route, vertical := routeOf(r)
				slog.Error("panic recovered",
					"error", err,
					"route", route,
					"vertical", vertical,
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GetTraceID extracts trace ID from context.
func GetTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(TraceIDKey).(string); ok {
		return v
	}
	return ""
}
