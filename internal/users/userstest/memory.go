// Package userstest はテスト用のユーザーリポジトリを提供します。
package userstest

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/yourusername/todo-api/internal/users"
)

// MemoryRepository はメモリ上で動く users.Repository です。
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[bson.ObjectID]users.User
	Inserts int
	// Err が設定されている場合、すべての操作がこのエラーを返します。
	Err error
}

// NewMemoryRepository は空の MemoryRepository を作成します。
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[bson.ObjectID]users.User)}
}

// FindByEmail は正規化したメールアドレスで検索します。
func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return r.findByEmailLocked(users.NormalizeEmail(email)), nil
}

// FindByID は ID で検索します。
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	u, ok := r.byID[oid]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// Insert は重複を確認してから保存します。
func (r *MemoryRepository) Insert(_ context.Context, user *users.User) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if r.findByEmailLocked(users.NormalizeEmail(user.Email)) != nil {
		return nil, users.ErrDuplicateEmail
	}

	record := *user
	record.Email = users.NormalizeEmail(record.Email)
	record.ID = bson.NewObjectID()
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	r.byID[record.ID] = record
	r.Inserts++
	return &record, nil
}

// Delete はテストからユーザーを消すためのヘルパーです。
func (r *MemoryRepository) Delete(id bson.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

func (r *MemoryRepository) findByEmailLocked(email string) *users.User {
	for _, u := range r.byID {
		if u.Email == email {
			found := u
			return &found
		}
	}
	return nil
}
