package auth

import (
	"log"
	"os"
	"time"

	"arenta/marketplace/internal/pkg/apperr"

	"github.com/golang-jwt/jwt"
)

var jwtKey []byte

func init() {
	key := os.Getenv("JWT_KEY")
	if key == "" {
		log.Println("WARNING: JWT_KEY is not set, using insecure fallback. Set JWT_KEY in env for production!")
		key = "insecure-development-key-change-me"
	}
	jwtKey = []byte(key)
}

type Claims struct {
	UserID uint `json:"user_id"`
	jwt.StandardClaims
}

// TokenService resolves a bearer token to claims. The websocket handshake
// depends on this interface so tests can swap the real JWT validation out.
type TokenService interface {
	Decode(tokenStr string) (*Claims, error)
}

type jwtTokenService struct{}

func NewTokenService() TokenService {
	return jwtTokenService{}
}

func (jwtTokenService) Decode(tokenStr string) (*Claims, error) {
	return ValidateToken(tokenStr)
}

func GenerateToken(userID uint) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := &Claims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expirationTime.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(jwtKey)
}

func ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return jwtKey, nil
	})

	if err != nil {
		return nil, apperr.Auth("invalid token: %v", err)
	}

	if !tkn.Valid {
		return nil, apperr.Auth("invalid token signature")
	}

	return claims, nil
}
