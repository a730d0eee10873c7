// Package auth は認証・認可機能を提供します。
package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/yourusername/todo-api/internal/users"
)

// SignupInput はサインアップの入力です（形式チェックは HTTP 層で済んでいる前提）。
type SignupInput struct {
	Firstname string
	Lastname  string
	Email     string
	Password  string
	Gender    users.Gender
}

// Service はサインアップ・ログイン・セッション参照をまとめます。
type Service struct {
	users  users.Repository
	hasher *Hasher
	tokens *TokenIssuer
}

// NewService は Service を作成します。
func NewService(repo users.Repository, hasher *Hasher, tokens *TokenIssuer) *Service {
	return &Service{
		users:  repo,
		hasher: hasher,
		tokens: tokens,
	}
}

// Signup はパスワードをハッシュ化してユーザーを登録します。
// メールアドレスが既に使われている場合は ErrDuplicateEmail をそのまま返します。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*users.User, error) {
	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Insert(ctx, users.New(in.Firstname, in.Lastname, in.Email, hashed, in.Gender))
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, oops.In("auth").
			Code("AUTH_SIGNUP_FAILED").
			With("email", users.NormalizeEmail(in.Email)).
			Wrap(err)
	}
	return user, nil
}

// Authenticate はメールアドレスとパスワードを検証し、成功時にトークンを発行します。
// 未登録とパスワード不一致はどちらも ErrInvalidCredentials になり、呼び出し側から区別できません。
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", oops.In("auth").
			Code("AUTH_LOGIN_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	if user == nil {
		s.hasher.VerifyDummy(password)
		return nil, "", ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken はユーザーのトークンを発行します。
func (s *Service) IssueToken(user *users.User) (string, error) {
	return s.tokens.Issue(user.IDHex(), user.Email)
}

// VerifyToken はトークンを検証します。
func (s *Service) VerifyToken(token string) (Identity, error) {
	return s.tokens.Verify(token)
}

// GetByID はユーザーを取得します。存在しない場合は (nil, nil) を返します。
func (s *Service) GetByID(ctx context.Context, id string) (*users.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, oops.In("auth").
			Code("AUTH_LOOKUP_FAILED").
			With("user_id", id).
			Wrap(err)
	}
	return user, nil
}

// TokenReady はトークン発行に必要な設定が揃っているかを返します。
func (s *Service) TokenReady() error {
	return s.tokens.Ready()
}

// TokenMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func (s *Service) TokenMaxAgeSeconds() int {
	return int(s.tokens.TTL().Seconds())
}
