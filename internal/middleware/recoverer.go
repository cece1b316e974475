package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/pkg/utils"
)

// Recoverer turns a handler panic into a 500 `{error}` response.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				logger.Error("handler panicked",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"))
				utils.RespondError(w, http.StatusInternalServerError, "Internal server error.")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
