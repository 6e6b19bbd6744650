package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "chat-relay"

// TokenService emite y valida tokens JWT firmados con HS256.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Claims viaja dentro del token: identidad del usuario y expiracion.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

var (
	ErrTokenSigning = errors.New("jwt signing key unavailable")
	ErrTokenInvalid = errors.New("jwt invalid")
	ErrTokenExpired = errors.New("jwt expired")
)

func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		issuer: tokenIssuer,
		now:    time.Now,
	}
}

// NewClaims arma los claims de un usuario con la expiracion indicada.
func NewClaims(username string, expiresAt time.Time) Claims {
	return Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
}

// Issue firma los claims. Completa issuer, subject, iat y jti si vienen vacios.
func (s *TokenService) Issue(claims Claims) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrTokenSigning
	}
	if strings.TrimSpace(claims.Username) == "" || claims.ExpiresAt == nil {
		return "", ErrTokenInvalid
	}
	if claims.Issuer == "" {
		claims.Issuer = s.issuer
	}
	if claims.Subject == "" {
		claims.Subject = claims.Username
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(s.now().UTC())
	}
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Join(ErrTokenSigning, err)
	}
	return signed, nil
}

// Verify valida firma, algoritmo, issuer y expiracion y devuelve los claims.
func (s *TokenService) Verify(tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrTokenInvalid
	}

	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Username) == "" || claims.Subject != claims.Username {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}
