package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/permission-management/internal"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenConfig struct {
	Secret     []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func TokenConfigFromSecurity(sec internal.SecurityConfig) TokenConfig {
	return TokenConfig{
		Secret:     []byte(sec.JWTSecret),
		Issuer:     sec.JWTIssuer,
		Audience:   sec.JWTAudience,
		AccessTTL:  sec.AccessTokenDuration,
		RefreshTTL: sec.RefreshTokenDuration,
	}
}

// TokenService issues and verifies HS256 tokens. It holds no mutable state.
type TokenService struct {
	cfg    TokenConfig
	parser *jwt.Parser
}

func NewTokenService(cfg TokenConfig) *TokenService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" {
		cfg.Issuer = internal.DefaultJWTIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = internal.DefaultJWTAudience
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
		// exp is whole seconds; a token stays valid through its exp second.
		jwt.WithLeeway(time.Second),
	)

	return &TokenService{cfg: cfg, parser: parser}
}

func (s *TokenService) AccessTTL() time.Duration {
	return s.cfg.AccessTTL
}

func (s *TokenService) RefreshTTL() time.Duration {
	return s.cfg.RefreshTTL
}

// Issue signs a token for p. iat and exp come from one clock reading, so exp == iat + ttl.
func (s *TokenService) Issue(p Principal, typ TokenType, ttl time.Duration) (string, error) {
	if !p.Role.Valid() {
		return "", internal.NewInternalError("cannot issue token", errors.New("invalid role "+string(p.Role)))
	}
	if !typ.Valid() {
		return "", internal.NewInternalError("cannot issue token", errors.New("invalid token type "+string(typ)))
	}

	issuedAt := s.cfg.Now().Truncate(time.Second)
	claims := &Claims{
		UserID: p.UserID,
		Role:   p.Role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(p.UserID, 10),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}
	if typ == TokenTypeAccess {
		claims.Email = p.Email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", internal.NewInternalError("cannot sign token", err)
	}
	return signed, nil
}

func (s *TokenService) IssuePair(p Principal) (TokenPair, error) {
	access, err := s.Issue(p, TokenTypeAccess, s.cfg.AccessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.Issue(p, TokenTypeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.AccessTTL / time.Second),
	}, nil
}

// Verify checks, in order: three segments (MalformedToken), the HMAC over the
// first two segments in constant time (InvalidSignature), then claims and
// expiry (MalformedToken / ExpiredToken).
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return nil, internal.ErrMalformedToken
	}

	sig, err := s.parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, internal.ErrInvalidSignature
	}
	// hmac.Equal under the hood.
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, s.cfg.Secret); err != nil {
		return nil, internal.ErrInvalidSignature
	}

	claims := &Claims{}
	_, err = s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrExpiredToken
		}
		return nil, internal.ErrMalformedToken.WithCause(err)
	}

	if claims.UserID <= 0 || !claims.Role.Valid() || !claims.Type.Valid() {
		return nil, internal.ErrMalformedToken
	}
	if claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, internal.ErrMalformedToken
	}

	return claims, nil
}

// VerifyType is Verify plus a token type check.
func (s *TokenService) VerifyType(tokenString string, typ TokenType) (*Claims, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, internal.ErrWrongTokenType
	}
	return claims, nil
}
