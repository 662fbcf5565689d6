package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/BradenHooton/kontakt/internal/models"
	pkghttp "github.com/BradenHooton/kontakt/pkg/http"
)

// RateLimitConfig holds the coarse HTTP throttle configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// DefaultAPIRateLimit returns the default throttle for the API routes (30 requests per minute)
func DefaultAPIRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
	}
}

// RateLimitByIP throttles requests per client IP. It sits in front of the submission
// counter and only guards against request floods; the per-window submission limit
// is enforced by the pipeline.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, models.MsgRateLimited)
		}),
	)
}
