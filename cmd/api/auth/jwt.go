package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"autoblog/config"
)

// JWTManager 는 HS256 단일 시크릿 문자열을 사용해 JWT 를 발급/검증한다.
// sub 는 사용자 ObjectID 의 hex 문자열이다.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewJWTManager 는 config.AuthConfig 에서 시크릿/issuer/만료 시간을 읽는다.
//
// - JWT_SECRET: HS256 서명에 사용할 시크릿 문자열(필수)
// - jwt_issuer: iss 클레임 값(기본값 "autoblog")
// - token_ttl: 토큰 수명(기본값 7일)
func NewJWTManager(cfg config.AuthConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	issuer := cfg.JWTIssuer
	if issuer == "" {
		issuer = "autoblog"
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWTManager{
		secret: []byte(cfg.JWTSecret),
		issuer: issuer,
		ttl:    ttl,
	}, nil
}

func (m *JWTManager) TTL() time.Duration { return m.ttl }

func (m *JWTManager) Sign(userID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iss":  m.issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse 는 서명, 만료, issuer 를 검증하고 (sub, role) 을 반환한다.
func (m *JWTManager) Parse(tokenString string) (string, string, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", "", fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return "", "", fmt.Errorf("token missing sub claim")
	}

	return sub, role, nil
}
