// Package users はユーザー資格情報の保存と検索を提供します。
package users

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Gender はユーザーの性別区分です。
type Gender string

const (
	GenderMen   Gender = "MEN"
	GenderWomen Gender = "WOMEN"
	GenderOther Gender = "OTHER"
)

// Valid は定義済みの区分かどうかを返します。
func (g Gender) Valid() bool {
	switch g {
	case GenderMen, GenderWomen, GenderOther:
		return true
	default:
		return false
	}
}

// User はユーザーの資格情報レコードです。
// PasswordHash は常にハッシュ値を保持し、JSON には出力されません。
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Firstname    string        `bson:"firstname" json:"firstname"`
	Lastname     string        `bson:"lastname" json:"lastname"`
	Email        string        `bson:"email" json:"email"`
	PasswordHash string        `bson:"password" json:"-"`
	Gender       Gender        `bson:"gender" json:"gender"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// New は新規登録用のレコードを作成します。passwordHash にはハッシュ済みの値を渡してください。
func New(firstname, lastname, email, passwordHash string, gender Gender) *User {
	return &User{
		Firstname:    strings.TrimSpace(firstname),
		Lastname:     strings.TrimSpace(lastname),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Gender:       gender,
	}
}

// IDHex は ID を16進文字列で返します。
func (u *User) IDHex() string {
	return u.ID.Hex()
}

// NormalizeEmail は前後の空白を除き、小文字化します。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
