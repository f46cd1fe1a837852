package middleware

import (
	"net/http"
	"net/url"

	"bluelog/app/auth"
	"bluelog/app/flash"
)

// Identity puts the caller's identity from the session cookie on the
// request context.
func Identity(sessions *auth.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := sessions.FromRequest(r)
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin sends anonymous callers to the login page.
func RequireAdmin(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.FromContext(r.Context()).IsAdmin() {
				flash.Set(w, "warning", "Please log in to access this page.")
				target := loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
