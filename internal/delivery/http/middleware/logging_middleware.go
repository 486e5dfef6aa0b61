package middleware

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"go-clinic-scheduler/pkg/response"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader            = "X-Request-ID"
	RequestIDKey    contextKey = "request_id"
)

type LoggingMiddleware struct {
	log *logrus.Logger
}

func NewLoggingMiddleware(log *logrus.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{log: log}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Handle tags the request with an id, recovers panics and logs one line per request.
func (m *LoggingMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)

		defer func() {
			if p := recover(); p != nil {
				var stack [4096]byte
				n := runtime.Stack(stack[:], false)
				m.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"panic":      p,
					"stack":      string(stack[:n]),
				}).Error("panic recovered")
				response.InternalServerError(rec, "")
			}

			entry := m.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"latency":    time.Since(start).String(),
				"remote_ip":  r.RemoteAddr,
			})
			if rec.status >= http.StatusInternalServerError {
				entry.Error("request")
			} else {
				entry.Info("request")
			}
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

func GetRequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}
