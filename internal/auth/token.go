package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"

	"github.com/yourusername/todo-api/internal/config"
)

// DefaultTokenTTL はトークンのデフォルトの有効期間です。
const DefaultTokenTTL = time.Hour

// Claims はトークンに含める内容です。sub にユーザーID、email にメールアドレスを入れます。
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity はトークン検証で得られる主体情報です。
type Identity struct {
	SubjectID string
	Email     string
}

// TokenIssuer は HS256 で署名したステートレスなセッショントークンを発行・検証します。
// サーバー側に失効リストは持たず、有効期限切れまで有効です。
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer は設定からシークレットと有効期間を受け取って TokenIssuer を作成します。
// シークレット未設定でも作成はでき、発行・検証の時点で ErrConfiguration になります。
func NewTokenIssuer(cfg *config.Config) *TokenIssuer {
	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL はデフォルトの有効期間を返します。
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Ready はトークンを発行できる状態かどうかを返します。
func (i *TokenIssuer) Ready() error {
	if len(i.secret) == 0 {
		return ErrConfiguration
	}
	return nil
}

// Issue はデフォルトの有効期間でトークンを発行します。
func (i *TokenIssuer) Issue(subjectID, email string) (string, error) {
	return i.IssueWithTTL(subjectID, email, i.ttl)
}

// IssueWithTTL は指定した有効期間でトークンを発行します。
func (i *TokenIssuer) IssueWithTTL(subjectID, email string, ttl time.Duration) (string, error) {
	// 署名処理の失敗と区別するため、シークレットの有無は先に確認する
	if err := i.Ready(); err != nil {
		return "", err
	}

	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", oops.In("auth").Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を確認し、主体情報を返します。
// ストアへの問い合わせは行いません。
func (i *TokenIssuer) Verify(tokenString string) (Identity, error) {
	if len(i.secret) == 0 {
		return Identity{}, ErrConfiguration
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Identity{}, oops.In("auth").Code("AUTH_INVALID_TOKEN").Wrap(fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}
	if claims.Subject == "" {
		return Identity{}, oops.In("auth").Code("AUTH_INVALID_TOKEN").Wrap(fmt.Errorf("%w: missing subject", ErrInvalidToken))
	}

	return Identity{SubjectID: claims.Subject, Email: claims.Email}, nil
}
