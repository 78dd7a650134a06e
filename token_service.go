package membership

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultSessionHours is used when Config does not set a session lifetime.
const DefaultSessionHours = 72

// TokenService signs and verifies the typed, expiring tokens used for
// sessions, email verification, and password reset.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	sessionTTL time.Duration
	logger     Logger
}

// TokenOptions controls how Issue mints a token.
type TokenOptions struct {
	// TTL overrides the purpose default. Zero uses DefaultTTL, or the
	// configured session lifetime for session tokens.
	TTL time.Duration
	// Email binds an address into the claims (email verification only).
	Email string
	// IssuedAt overrides the issuance time. Zero uses time.Now().
	IssuedAt time.Time
}

// NewTokenService creates a new TokenService. The signing key is captured
// once and never changes for the process lifetime.
func NewTokenService(cfg Config, logger Logger) *TokenService {
	hours := cfg.GetTokenExpiration()
	if hours <= 0 {
		hours = DefaultSessionHours
	}

	var aud jwt.ClaimStrings
	if len(cfg.GetAudience()) > 0 {
		aud = make(jwt.ClaimStrings, len(cfg.GetAudience()))
		copy(aud, cfg.GetAudience())
	}

	return &TokenService{
		signingKey: []byte(cfg.GetSigningKey()),
		issuer:     cfg.GetIssuer(),
		audience:   aud,
		sessionTTL: time.Duration(hours) * time.Hour,
		logger:     normalizeLogger(logger),
	}
}

// SessionTTL returns the configured session token lifetime.
func (ts *TokenService) SessionTTL() time.Duration {
	return ts.sessionTTL
}

// Issue mints a signed token for the given subject and purpose.
func (ts *TokenService) Issue(subjectID, purpose string, opts TokenOptions) (string, error) {
	if subjectID == "" {
		return "", goerrors.New("token subject is required", goerrors.CategoryBadInput)
	}

	ttl := opts.TTL
	if ttl == 0 {
		if purpose == PurposeSession {
			ttl = ts.sessionTTL
		} else {
			ttl = DefaultTTL(purpose)
		}
	}
	if ttl <= 0 {
		return "", goerrors.New("token TTL must be positive", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"purpose": purpose})
	}

	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subjectID,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		TokenPurpose: purpose,
		Email:        opts.Email,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *TokenService) SignClaims(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signedString, nil
}

// Verify parses and validates a token string. Every failure mode, bad
// signature, wrong signing method, expiry, or garbage input, maps to
// ErrInvalidOrExpiredToken so callers cannot tell which check failed.
func (ts *TokenService) Verify(tokenString string) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if IsTokenExpiredError(err) {
			ts.logger.Debug("token verification failed: expired")
		} else {
			ts.logger.Debug("token verification failed: %v", err)
		}
		return nil, ErrInvalidOrExpiredToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token verification could not decode claims")
		return nil, ErrInvalidOrExpiredToken
	}

	return claims, nil
}
