package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/megavault/internal/common"
	"github.com/dmitrijs2005/megavault/internal/server/config"
	"golang.org/x/crypto/bcrypt"
)

// Service authenticates the single configured account and issues tokens.
type Service struct {
	email                       string
	passwordHash                []byte
	folderID                    string
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		email:                       cfg.UserEmail,
		passwordHash:                []byte(cfg.UserPasswordHash),
		folderID:                    cfg.UserFolderID,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// LoginEnabled reports whether a password hash is configured.
func (s *Service) LoginEnabled() bool {
	return len(s.passwordHash) > 0
}

// TokenValidity is how long issued tokens stay valid.
func (s *Service) TokenValidity() time.Duration {
	return s.accessTokenValidityDuration
}

// Secret is the token verification key.
func (s *Service) Secret() []byte {
	return s.jwtSecret
}

// Login checks the credentials and returns a signed token with the identity.
func (s *Service) Login(ctx context.Context, email string, password []byte) (string, Identity, error) {
	if !s.LoginEnabled() {
		return "", Identity{}, common.ErrUnauthorized
	}

	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(s.email))) == 1

	// always pay for the bcrypt comparison so unknown emails are not faster
	err := bcrypt.CompareHashAndPassword(s.passwordHash, password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", Identity{}, common.ErrUnauthorized
		}
		return "", Identity{}, err
	}
	if !emailOK {
		return "", Identity{}, common.ErrUnauthorized
	}

	id := Identity{Email: s.email, FolderID: s.folderID, IsActive: true}

	token, err := GenerateToken(id, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", Identity{}, err
	}

	return token, id, nil
}

// HashPassword returns the bcrypt hash to put into the configuration.
func HashPassword(password []byte) (string, error) {
	h, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
