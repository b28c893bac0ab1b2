package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/megavault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the Identity inside a signed session token.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email"`
	FolderID string `json:"folderId"`
	IsActive bool   `json:"isActive"`
}

// GenerateToken signs an HS256 token for id that expires after validityDuration.
func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	jti, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   id.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Email:    id.Email,
		FolderID: id.FolderID,
		IsActive: id.IsActive,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies tokenString and returns the Identity it carries.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// verification yields an error wrapping common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Email == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{
		Email:    claims.Email,
		FolderID: claims.FolderID,
		IsActive: claims.IsActive,
	}, nil
}
