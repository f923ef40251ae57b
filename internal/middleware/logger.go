package middleware

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logger пишет в журнал метод, путь, статус, размер ответа и длительность каждого запроса.
func Logger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			var authUserID string
			r = r.WithContext(context.WithValue(r.Context(), userSlotKey, &authUserID))

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("uri", r.RequestURI),
					zap.Int("status", status),
					zap.Int("size", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", chimiddleware.GetReqID(r.Context())),
				}
				userID, ok := GetUserIDFromContext(r.Context())
				if !ok {
					userID = authUserID
				}
				if userID != "" {
					fields = append(fields, zap.String("user_id", userID))
				}
				if status >= http.StatusInternalServerError {
					logger.Warn("request served", fields...)
					return
				}
				logger.Info("request served", fields...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
