package users

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/yourusername/todo-api/internal/store"
)

const collectionName = "users"

// MongoRepository は MongoDB の users コレクションに対する Repository 実装です。
type MongoRepository struct {
	db  store.DatabaseProvider
	now func() time.Time
}

// NewMongoRepository は MongoRepository を作成します。
func NewMongoRepository(db store.DatabaseProvider) *MongoRepository {
	return &MongoRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *MongoRepository) collection() (*mongo.Collection, error) {
	db, err := r.db.Database()
	if err != nil {
		return nil, err
	}
	return db.Collection(collectionName), nil
}

// EnsureIndexes は email の一意インデックスを作成します。
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	coll, err := r.collection()
	if err != nil {
		return err
	}
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return oops.In("users").Code("USERS_INDEX_FAILED").Wrap(err)
	}
	return nil
}

// FindByEmail は正規化したメールアドレスで完全一致検索します。
func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: NormalizeEmail(email)}})
}

// FindByID は ID で検索します。不正な形式の ID は「存在しない」として扱います。
func (r *MongoRepository) FindByID(ctx context.Context, id string) (*User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

// Insert はユーザーを保存します。
// 事前確認と保存の間には競合の余地があるため、一意インデックス違反も ErrDuplicateEmail に変換します。
func (r *MongoRepository) Insert(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	existing, err := r.FindByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	record := *user
	record.Email = NormalizeEmail(record.Email)
	record.ID = bson.NewObjectID()
	now := r.now()
	record.CreatedAt = now
	record.UpdatedAt = now

	if _, err := coll.InsertOne(ctx, &record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, oops.In("users").
			Code("USERS_INSERT_FAILED").
			With("email", record.Email).
			Wrap(err)
	}
	return &record, nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.D) (*User, error) {
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	var user User
	if err := coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, oops.In("users").Code("USERS_FIND_FAILED").Wrap(err)
	}
	return &user, nil
}
