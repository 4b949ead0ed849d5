package usecases

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAPIDisabled is returned when no status API secret is configured.
var ErrAPIDisabled = errors.New("status API is disabled")

// TokenTTL is the lifetime of status API tokens.
const TokenTTL = 24 * time.Hour

// AuthUsecase mints and verifies status API tokens for authorized users.
type AuthUsecase struct {
	jwtSecret []byte
	now       func() time.Time
}

func NewAuthUsecase(secret string) *AuthUsecase {
	return &AuthUsecase{
		jwtSecret: []byte(secret),
		now:       time.Now,
	}
}

// Enabled reports whether a signing secret is configured.
func (uc *AuthUsecase) Enabled() bool {
	return len(uc.jwtSecret) > 0
}

// IssueToken returns an HS256 token whose subject is the Telegram user id.
func (uc *AuthUsecase) IssueToken(userID int64) (string, time.Time, error) {
	if !uc.Enabled() {
		return "", time.Time{}, ErrAPIDisabled
	}
	now := uc.now()
	exp := now.Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})

	signed, err := token.SignedString(uc.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// ParseToken validates a token and returns the user id it was issued to.
func (uc *AuthUsecase) ParseToken(tokenString string) (int64, error) {
	if !uc.Enabled() {
		return 0, ErrAPIDisabled
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return uc.jwtSecret, nil
	}, jwt.WithTimeFunc(uc.now))
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token subject: %w", err)
	}
	return userID, nil
}
