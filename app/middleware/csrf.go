package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFFieldName  = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

type csrfKey struct{}

// CSRF implements the double-submit cookie check. Every response carries a
// token cookie; unsafe methods must echo it in a form field or header.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if cookie, err := r.Cookie(CSRFCookieName); err == nil {
			token = cookie.Value
		}
		issued := false
		if token == "" {
			token = uuid.NewString()
			issued = true
			http.SetCookie(w, &http.Cookie{
				Name:     CSRFCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		if !safeMethod(r.Method) {
			submitted := r.Header.Get(CSRFHeaderName)
			if submitted == "" {
				submitted = r.PostFormValue(CSRFFieldName)
			}
			if issued || submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
				http.Error(w, "The CSRF token is missing or invalid.", http.StatusBadRequest)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey{}, token)))
	})
}

// CSRFToken returns the token of the current request, for forms.
func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(csrfKey{}).(string)
	return token
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
