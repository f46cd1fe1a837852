package middleware

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
)

// MaxBodyBytes bounds form bodies.
const MaxBodyBytes = 64 << 10

// Protector answers CORS requests for the read only JSON API.
func Protector() func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	})
	return c.Handler
}

// LimitBody caps request bodies at MaxBodyBytes. It must run before anything
// that parses the form.
func LimitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit throttles unsafe requests per client address and path. perMinute
// below one disables the limit.
func RateLimit(perMinute, burst int, log logrus.FieldLogger) (func(http.Handler) http.Handler, error) {
	if perMinute < 1 {
		return func(next http.Handler) http.Handler { return next }, nil
	}

	store, err := memstore.NewCtx(65536)
	if err != nil {
		return nil, err
	}
	limiter, err := throttled.NewGCRARateLimiterCtx(store, throttled.RateQuota{
		MaxRate:  throttled.PerMin(perMinute),
		MaxBurst: burst,
	})
	if err != nil {
		return nil, err
	}

	httpLimiter := throttled.HTTPRateLimiterCtx{
		RateLimiter: limiter,
		VaryBy:      &throttled.VaryBy{RemoteAddr: true, Path: true},
		Error: func(w http.ResponseWriter, r *http.Request, err error) {
			log.WithError(err).Error("rate limiter failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}

	return func(next http.Handler) http.Handler {
		limited := httpLimiter.RateLimit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if safeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}, nil
}
