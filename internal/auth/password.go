package auth

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost はパスワードハッシュのデフォルトのコストです。
const DefaultBcryptCost = 12

// Hasher は bcrypt によるパスワードのハッシュ化と検証を行います。
// ソルトは呼び出しごとに生成されるため、同じ平文でも毎回異なるハッシュになります。
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewHasher は Hasher を作成します。範囲外のコストはデフォルト値に置き換えます。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Cost は使用するコストを返します。
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash は平文パスワードのハッシュを返します。
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", oops.In("auth").Code("AUTH_HASH_FAILED").Wrap(err)
	}
	return string(hashed), nil
}

// Verify は平文がハッシュと一致するかを返します。比較は bcrypt 内部で定数時間に行われます。
func (h *Hasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// VerifyDummy はユーザーが存在しない場合にも同じコストの比較を1回行います。
// 未登録メールアドレスとパスワード不一致の応答時間を揃えるためのもので、結果は常に false です。
func (h *Hasher) VerifyDummy(plaintext string) bool {
	h.dummyOnce.Do(func() {
		buf := make([]byte, 16)
		_, _ = rand.Read(buf)
		hashed, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(buf)), h.cost)
		if err == nil {
			h.dummyHash = hashed
		}
	})
	if h.dummyHash != nil {
		_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plaintext))
	}
	return false
}
