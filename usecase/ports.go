package usecase

import (
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
)

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// TokenIssuer signs session tokens for an authenticated subject.
type TokenIssuer interface {
	Issue(subject string) (string, time.Time, error)
}

// DenialRecorder counts refused operations.
type DenialRecorder interface {
	AccessDenied(operation string)
}

type noopDenials struct{}

func (noopDenials) AccessDenied(string) {}

// Options carries collaborators shared by every service.
type Options struct {
	Now     func() time.Time
	Denials DenialRecorder
}

type Option func(*Options)

// WithClock overrides the time source used for timestamps and overdue checks.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithDenialRecorder registers the sink for access denials.
func WithDenialRecorder(r DenialRecorder) Option {
	return func(o *Options) {
		if r != nil {
			o.Denials = r
		}
	}
}

// ApplyOptions resolves opts over the defaults.
func ApplyOptions(opts ...Option) Options {
	o := Options{
		Now:     func() time.Time { return time.Now().UTC() },
		Denials: noopDenials{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Authorize evaluates an authorization predicate for operation. Denials are
// logged and recorded before the error is returned.
func (o Options) Authorize(logger *zap.Logger, p *domain.Principal, allowed bool, operation string) error {
	err := domain.Require(p, allowed, operation)
	if err != nil && domain.IsDomainError(err, domain.ErrCodeForbidden) {
		logger.Warn("access denied",
			zap.String("operation", operation),
			zap.String("principal", p.Username),
		)
		o.Denials.AccessDenied(operation)
	}
	return err
}
