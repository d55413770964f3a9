package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	jwtSecret string
	jwtTTL    = time.Hour * 168
)

func InitJWT(secret string, ttl time.Duration) error {
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}

	jwtSecret = secret

	if ttl > 0 {
		jwtTTL = ttl
	}

	return nil
}

func TokenTTL() time.Duration {
	return jwtTTL
}

func GenerateJWT(userID uuid.UUID, username string) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  userID.String(),
		"username": username,
		"exp":      time.Now().Add(jwtTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

func VerifyJWT(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	return token, nil
}

// UserIDFromToken extracts the subject user of a verified token.
func UserIDFromToken(token *jwt.Token) (uuid.UUID, error) {
	claims, ok := token.Claims.(jwt.MapClaims)

	if !ok {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}

	raw, ok := claims["user_id"].(string)

	if !ok {
		return uuid.Nil, fmt.Errorf("invalid user ID in token claims")
	}

	return uuid.Parse(raw)
}
