package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"inkpost/app/services"

	"go.uber.org/zap"
)

// LoginPath is where anonymous visitors are sent.
const LoginPath = "/login/"

// SessionParser resolves a session token to a caller.
type SessionParser interface {
	ParseSession(token string) (services.Caller, error)
}

// WithCaller stores the caller on ctx.
func WithCaller(ctx context.Context, caller services.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFrom returns the caller attached by Session, or Anonymous.
func CallerFrom(ctx context.Context) services.Caller {
	caller, ok := ctx.Value(callerKey).(services.Caller)
	if !ok {
		return services.Anonymous
	}
	return caller
}

// Session reads the session cookie and attaches the caller to the request.
// Invalid or expired cookies are cleared and the request continues
// anonymously.
func Session(parser SessionParser, cookieName string, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.L()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := services.Anonymous
			if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
				parsed, err := parser.ParseSession(cookie.Value)
				switch {
				case err == nil:
					caller = parsed
				case err == services.ErrAuthenticationRequired:
					http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
				default:
					log.Error("session lookup failed",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.Error(err),
					)
				}
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// RequireLogin redirects anonymous visitors to the login page, or answers
// 401 to JSON clients.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !CallerFrom(r.Context()).IsAuthenticated() {
			RedirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff is RequireLogin plus a 403 for non-staff users.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := CallerFrom(r.Context())
		if !caller.IsAuthenticated() {
			RedirectToLogin(w, r)
			return
		}
		if !caller.IsStaff {
			if WantsJSON(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"staff access required"}`))
				return
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RedirectToLogin sends the visitor to the login page with a next
// parameter pointing back at the current path.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	if WantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"authentication required"}`))
		return
	}
	http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusFound)
}

// LoginURL is the login page returning to next afterwards.
func LoginURL(next string) string {
	if next == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// WantsJSON reports whether the client asked for a JSON response.
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
