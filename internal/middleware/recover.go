package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/boardroom/backend/pkg/utils"
)

// Recoverer turns a panic into a 500 response carrying the panic message.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				logger.ErrorContext(r.Context(), "unhandled panic",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rvr,
					"req_id", chimw.GetReqID(r.Context()),
					"stack", string(debug.Stack()),
				)
				utils.RespondJSON(w, http.StatusInternalServerError, map[string]string{
					"error":  "Internal server error",
					"detail": fmt.Sprint(rvr),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
