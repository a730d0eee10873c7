// Package todos は Todo の CRUD を提供します。
package todos

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Todo は Todo リストの1項目です。
type Todo struct {
	ID          bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string        `bson:"title" json:"title"`
	IsCompleted bool          `bson:"isCompleted" json:"isCompleted"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Patch は部分更新の内容です。nil のフィールドは変更しません。
type Patch struct {
	Title       *string
	IsCompleted *bool
}

// Repository は Todo の永続化を担います。
// ID 指定の操作は、見つからない場合（不正な ID を含む）に (nil, nil) を返します。
type Repository interface {
	List(ctx context.Context) ([]Todo, error)
	Get(ctx context.Context, id string) (*Todo, error)
	Create(ctx context.Context, todo *Todo) (*Todo, error)
	Update(ctx context.Context, id string, patch Patch) (*Todo, error)
	Delete(ctx context.Context, id string) (*Todo, error)
}
