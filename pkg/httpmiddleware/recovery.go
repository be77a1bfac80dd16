package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a logged 500 response with the same
// JSON error shape the API uses. http.ErrAbortHandler is passed through.
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				zctx.From(r.Context()).Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"),
				)

				e := &jx.Encoder{}
				e.Obj(func(e *jx.Encoder) {
					e.Field("error", func(e *jx.Encoder) {
						e.Obj(func(e *jx.Encoder) {
							e.Field("kind", func(e *jx.Encoder) { e.Str("internal") })
							e.Field("message", func(e *jx.Encoder) { e.Str("internal error") })
						})
					})
				})

				w.Header().Set("Connection", "close")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write(e.Bytes())
			}()
			next.ServeHTTP(w, r)
		})
	}
}
