package middleware

import (
	"context"
	"net/http"

	"github.com/gitmanhimanshu/verdantia/internal/session"
)

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"
	ctxCurrent   ctxKey = "current_session"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

func WithCurrent(ctx context.Context, cur session.Current) context.Context {
	return context.WithValue(ctx, ctxCurrent, cur)
}

func Cur(ctx context.Context) (session.Current, bool) {
	c, ok := ctx.Value(ctxCurrent).(session.Current)
	return c, ok
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set(
			"Content-Security-Policy",
			"default-src 'self'; "+
				"img-src 'self' data: https://*.tile.openstreetmap.org; "+
				"style-src 'self' 'unsafe-inline'; "+
				"connect-src 'self'; "+
				"script-src 'self'; frame-ancestors 'none'; base-uri 'self'",
		)
		next.ServeHTTP(w, r)
	})
}
