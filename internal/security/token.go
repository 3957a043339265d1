package security

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// FailureReason classifies why a token was rejected.
type FailureReason string

const (
	FailureEmpty       FailureReason = "empty"
	FailureMalformed   FailureReason = "malformed"
	FailureSignature   FailureReason = "signature"
	FailureExpired     FailureReason = "expired"
	FailureUnsupported FailureReason = "unsupported"
)

var errUnsupportedAlg = errors.New("unsupported signing algorithm")

// Claims is the payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
}

// Option configures a TokenCodec.
type Option func(*TokenCodec)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIssuer sets the iss claim written into issued tokens.
func WithIssuer(issuer string) Option {
	return func(c *TokenCodec) { c.issuer = issuer }
}

// WithFailureHook registers a callback invoked for every rejected token.
func WithFailureHook(fn func(FailureReason)) Option {
	return func(c *TokenCodec) { c.onFailure = fn }
}

// TokenCodec issues and verifies HS256 session tokens. It holds no mutable
// state and is safe for concurrent use.
type TokenCodec struct {
	secret    []byte
	ttl       time.Duration
	issuer    string
	now       func() time.Time
	logger    *zap.Logger
	onFailure func(FailureReason)
}

// NewTokenCodec builds a codec. A secret that decodes as standard base64 to at
// least 32 bytes is used decoded; otherwise the raw bytes are the key.
func NewTokenCodec(secret string, ttl time.Duration, logger *zap.Logger, opts ...Option) *TokenCodec {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &TokenCodec{
		secret: signingKey(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the lifetime of issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for subject valid for the configured TTL.
func (c *TokenCodec) Issue(subject string) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, errors.New("token subject is empty")
	}
	issuedAt := c.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(c.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify returns the token subject when the token is well formed, signed with
// the shared secret and not expired. Failures are logged with their reason;
// callers only see ok=false.
func (c *TokenCodec) Verify(token string) (string, bool) {
	claims, reason, err := c.parse(token)
	if reason != "" {
		c.reject(reason, err)
		return "", false
	}
	return claims.Subject, true
}

func (c *TokenCodec) parse(token string) (*Claims, FailureReason, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, FailureEmpty, nil
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errUnsupportedAlg
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, classify(err), err
	}
	if !parsed.Valid {
		return nil, FailureSignature, nil
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, FailureMalformed, errors.New("missing subject or expiry")
	}
	if !claims.ExpiresAt.Time.After(c.now()) {
		return nil, FailureExpired, nil
	}
	return claims, "", nil
}

func classify(err error) FailureReason {
	if errors.Is(err, errUnsupportedAlg) {
		return FailureUnsupported
	}
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		switch {
		case ve.Errors&jwt.ValidationErrorMalformed != 0:
			return FailureMalformed
		case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
			return FailureSignature
		case ve.Errors&jwt.ValidationErrorExpired != 0:
			return FailureExpired
		}
	}
	return FailureMalformed
}

func (c *TokenCodec) reject(reason FailureReason, err error) {
	fields := []zap.Field{zap.String("reason", string(reason))}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	c.logger.Warn("session token rejected", fields...)
	if c.onFailure != nil {
		c.onFailure(reason)
	}
}

func signingKey(secret string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(secret); err == nil && len(decoded) >= 32 {
		return decoded
	}
	return []byte(secret)
}
