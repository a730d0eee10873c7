package users

import (
	"context"
	"errors"
)

// ErrDuplicateEmail は同じメールアドレスのユーザーが既に存在する場合に返されます。
var ErrDuplicateEmail = errors.New("email already in use")

// Repository はユーザーレコードの永続化を担います。
// 見つからない場合の検索系メソッドは (nil, nil) を返します。
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	// Insert は正規化済みメールアドレスの重複を事前に確認してから保存します。
	// 重複時は ErrDuplicateEmail を返します。
	Insert(ctx context.Context, user *User) (*User, error)
}
