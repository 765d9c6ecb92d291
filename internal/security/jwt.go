package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
	// AuthTime is when the user last presented credentials; sensitive operations check it.
	AuthTime int64 `json:"auth_time"`
	jwt.RegisteredClaims
}

func MakeSessionToken(km *KeyManager, uid, email, provider string, authTime time.Time, ttl time.Duration) (string, error) {
	jti, err := NewID()
	if err != nil {
		return "", err
	}
	now := time.Now()
	c := Claims{
		UID: uid, Email: email, Provider: provider, AuthTime: authTime.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   uid,
			ID:        jti,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	token.Header["kid"] = km.Active.Kid
	return token.SignedString(km.Active.Private)
}

func ParseSessionToken(km *KeyManager, token string) (*Claims, error) {
	keyfunc := func(tk *jwt.Token) (interface{}, error) {
		kid, _ := tk.Header["kid"].(string)
		if pk, ok := km.PublicByKid(kid); ok {
			return pk, nil
		}
		return nil, errors.New("no key by kid")
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, keyfunc, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		return nil, err
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}
