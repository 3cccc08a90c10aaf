package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
)

// Recovery turns panics into a 500 response. Assertion failures and unrecoverable errors raised
// as panics end only the current request.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				err, ok := v.(error)
				if !ok {
					err = fmt.Errorf("%v", v)
				}
				var assertion *exceptions.AssertionError
				logger.Error("request panicked",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Bool("assertion", errors.As(err, &assertion)),
					zap.Error(err),
					zap.Stack("stack"))
				writeProblem(w, http.StatusInternalServerError, "internal_server_error", err.Error())
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs one line per request at debug level, errors at warn
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("user", ActorFrom(r.Context()).User),
			}
			if status >= http.StatusInternalServerError {
				logger.Warn("request failed", fields...)
				return
			}
			logger.Debug("request", fields...)
		})
	}
}

type localeKey struct{}

// Negotiator picks a supported locale for an Accept-Language header
type Negotiator interface {
	Negotiate(acceptLanguage string) language.Tag
}

// Locale stores the negotiated locale of the request in its context
func Locale(n Negotiator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := n.Negotiate(r.Header.Get("Accept-Language"))
			w.Header().Set("Content-Language", tag.String())
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), localeKey{}, tag)))
		})
	}
}

// LocaleFrom returns the negotiated locale, language.Und when none was negotiated
func LocaleFrom(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(localeKey{}).(language.Tag); ok {
		return tag
	}
	return language.Und
}
