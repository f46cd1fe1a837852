package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// CookieName is the cookie carrying the signed admin session.
const CookieName = "session"

const issuer = "bluelog"

var signingMethod = jwt.SigningMethodHS256

// ErrInvalidSession is returned for tokens that are malformed, tampered with
// or expired.
var ErrInvalidSession = errors.New("invalid session")

type sessionClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Sessions issues and verifies HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for an authenticated identity.
func (s *Sessions) Issue(identity Identity) (string, error) {
	if !identity.Authenticated || identity.Username == "" {
		return "", fmt.Errorf("cannot issue a session for an anonymous caller")
	}

	now := s.now()
	token := jwt.NewWithClaims(signingMethod, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   identity.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name:  identity.Name,
		Email: identity.Email,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the identity it carries.
func (s *Sessions) Parse(token string) (Identity, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{signingMethod.Name}))

	var claims sessionClaims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Anonymous(), ErrInvalidSession
	}
	if claims.Issuer != issuer || claims.Subject == "" {
		return Anonymous(), ErrInvalidSession
	}

	return Identity{
		Authenticated: true,
		Username:      claims.Subject,
		Name:          claims.Name,
		Email:         claims.Email,
	}, nil
}

// FromRequest returns the identity of the session cookie, or Anonymous.
func (s *Sessions) FromRequest(r *http.Request) Identity {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Anonymous()
	}
	identity, err := s.Parse(cookie.Value)
	if err != nil {
		return Anonymous()
	}
	return identity
}

// SetCookie stores token on the response. A remembered session persists for
// the session TTL; otherwise it ends with the browser session.
func (s *Sessions) SetCookie(w http.ResponseWriter, token string, remember bool) {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.MaxAge = int(s.ttl.Seconds())
	}
	http.SetCookie(w, cookie)
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
