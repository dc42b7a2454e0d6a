package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const stateIssuer = "studyflash-auth"

// StateClaims là nội dung của tham số "state" gửi sang nhà cung cấp OAuth.
// VerificationID trỏ tới bản ghi verification giữ PKCE verifier.
type StateClaims struct {
	VerificationID string `json:"vid"`
	Provider       string `json:"provider"`
	jwt.RegisteredClaims
}

// GenerateStateToken ký state bằng HS256.
func GenerateStateToken(secret []byte, verificationID, provider string, now time.Time, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("state secret is empty")
	}
	claims := StateClaims{
		VerificationID: verificationID,
		Provider:       provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyStateToken kiểm tra chữ ký, issuer và hạn của state.
func VerifyStateToken(secret []byte, tokenString string, now time.Time) (*StateClaims, error) {
	claims := &StateClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("verify state: %w", err)
	}
	if !token.Valid || claims.VerificationID == "" {
		return nil, errors.New("verify state: invalid claims")
	}
	return claims, nil
}
