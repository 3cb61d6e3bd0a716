package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cynco/irportal/internal/model"
)

// SessionCookieName はセッションCookieの名前。
const SessionCookieName = "cynco.sid"

// ErrInvalidSessionToken はCookieの署名検証や期限の検証に失敗した場合に返される。
var ErrInvalidSessionToken = errors.New("invalid session token")

// sessionClaims はCookieに格納するJWTのクレーム。
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionCodec はセッションIDをHS256署名付きJWTとしてCookie値に変換する。
// 改ざんや偽造されたCookieはストアへの問い合わせ前に拒否される。
type SessionCodec struct {
	secret []byte
	now    func() time.Time
}

// NewSessionCodec はSessionCodecを生成する。
func NewSessionCodec(secret []byte) *SessionCodec {
	return &SessionCodec{secret: secret, now: time.Now}
}

// Encode はセッションをCookie値に変換する。
func (c *SessionCodec) Encode(s *model.Session) (string, error) {
	claims := sessionClaims{
		SessionID: s.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Decode はCookie値を検証してセッションIDを取り出す。
func (c *SessionCodec) Decode(value string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(value, &claims,
		func(_ *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if claims.SessionID == "" {
		return "", fmt.Errorf("%w: missing sid", ErrInvalidSessionToken)
	}
	return claims.SessionID, nil
}
