package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/talmud/media-service/internal/response"
)

// Recoverer turns a panic in a downstream handler into a 500 JSON error so
// clients always receive an {"error": ...} body.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Printf("[%s] panic: %v\n%s", chiMiddleware.GetReqID(r.Context()), rec, debug.Stack())
			response.InternalError(w, fmt.Sprint(rec))
		}()
		next.ServeHTTP(w, r)
	})
}
