package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance. The signing key is
// checked once here, so a short key fails the process at startup rather
// than on the first request.
func NewTokenService(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	if len(cfg.GetSigningKey()) < MinSigningKeyLen {
		return nil, ErrSigningKeyTooShort
	}

	if logger == nil {
		logger = defLogger{}
	}

	return &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		issuer:     cfg.GetIssuer(),
		logger:     logger,
		now:        time.Now,
	}, nil
}

// WithClock overrides the time source, used by tests to move expiry around.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// IssueAccessToken mints a signed access token for the account and returns
// it alongside its lifetime in seconds.
func (ts *TokenServiceImpl) IssueAccessToken(account *Account) (string, int64, error) {
	token, err := ts.sign(account, TokenKindAccess, ts.accessTTL)
	if err != nil {
		return "", 0, err
	}
	return token, int64(ts.accessTTL.Seconds()), nil
}

// IssueRefreshToken mints a signed refresh token for the account.
func (ts *TokenServiceImpl) IssueRefreshToken(account *Account) (string, error) {
	return ts.sign(account, TokenKindRefresh, ts.refreshTTL)
}

func (ts *TokenServiceImpl) sign(account *Account, kind TokenKind, ttl time.Duration) (string, error) {
	if account == nil {
		return "", errors.New("account must not be nil", errors.CategoryInternal)
	}

	now := ts.now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   account.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		AccountID: account.ID.String(),
		Email:     account.Email,
		Kind:      kind,
	}

	if kind == TokenKindAccess {
		claims.FullName = account.FullName()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(ts.now))
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode claims")
	return nil, ErrTokenMalformed
}

// TokenType extracts the type claim from an otherwise valid token. It never
// errors: any parse or signature failure yields an empty string.
func (ts *TokenServiceImpl) TokenType(tokenString string) string {
	claims, err := ts.Validate(tokenString)
	if err != nil {
		if IsTokenExpiredError(err) {
			// expiry does not erase the type tag
			if expired := ts.parseUnverifiedKind(tokenString); expired != "" {
				return expired
			}
		}
		return ""
	}
	return claims.Kind
}

func (ts *TokenServiceImpl) parseUnverifiedKind(tokenString string) string {
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return ""
	}
	return claims.Kind
}

// NewOpaqueToken mints a random, unguessable bearer string for email
// verification and password reset flows. Its validity is authoritative in
// the credential store, which is what makes revocation a column update.
func NewOpaqueToken() string {
	return uuid.NewString()
}

var _ TokenService = (*TokenServiceImpl)(nil)
