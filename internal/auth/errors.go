package auth

import (
	"errors"

	"github.com/yourusername/todo-api/internal/users"
)

var (
	// ErrDuplicateEmail はサインアップ時にメールアドレスが既に使われている場合のエラーです。
	ErrDuplicateEmail = users.ErrDuplicateEmail

	// ErrInvalidCredentials はメールアドレス未登録・パスワード不一致のどちらでも同じく返されます。
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken は署名不正・形式不正・期限切れのトークンに対して返されます。
	ErrInvalidToken = errors.New("invalid token")

	// ErrConfiguration は署名用シークレットが設定されていない場合に返されます。
	ErrConfiguration = errors.New("JWT_SECRET is not defined")
)
