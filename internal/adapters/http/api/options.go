package api

import "time"

// Option configures a Server.
type Option func(*Server)

// WithRateLimit limits POST /v1/signals per user. Over-limit signals are
// dropped and still acknowledged.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		s.limiter = NewRateLimiter(perSecond, burst)
	}
}

// WithClock overrides the time source used for default report periods.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}
