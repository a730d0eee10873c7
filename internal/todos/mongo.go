package todos

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

const collectionName = "todos"

// MongoRepository は MongoDB の todos コレクションに対する Repository 実装です。
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

// List は全件を作成順で返します。
func (r *MongoRepository) List(ctx context.Context) ([]Todo, error) {
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, oops.In("todos").Code("TODOS_LIST_FAILED").Wrap(err)
	}
	todos := make([]Todo, 0)
	if err := cursor.All(ctx, &todos); err != nil {
		return nil, oops.In("todos").Code("TODOS_LIST_FAILED").Wrap(err)
	}
	return todos, nil
}

// Get は ID で1件取得します。
func (r *MongoRepository) Get(ctx context.Context, id string) (*Todo, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	var todo Todo
	if err := coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&todo); err != nil {
		return nil, notFoundAsNil(err, "TODOS_GET_FAILED")
	}
	return &todo, nil
}

// Create は新しい Todo を保存します。
func (r *MongoRepository) Create(ctx context.Context, todo *Todo) (*Todo, error) {
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	record := *todo
	record.ID = bson.NewObjectID()
	now := r.now()
	record.CreatedAt = now
	record.UpdatedAt = now

	if _, err := coll.InsertOne(ctx, &record); err != nil {
		return nil, oops.In("todos").Code("TODOS_CREATE_FAILED").Wrap(err)
	}
	return &record, nil
}

// Update は指定したフィールドだけを更新し、更新後の内容を返します。
func (r *MongoRepository) Update(ctx context.Context, id string, patch Patch) (*Todo, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	set := bson.D{{Key: "updatedAt", Value: r.now()}}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.IsCompleted != nil {
		set = append(set, bson.E{Key: "isCompleted", Value: *patch.IsCompleted})
	}

	var todo Todo
	err = coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&todo)
	if err != nil {
		return nil, notFoundAsNil(err, "TODOS_UPDATE_FAILED")
	}
	return &todo, nil
}

// Delete は1件削除し、削除した内容を返します。
func (r *MongoRepository) Delete(ctx context.Context, id string) (*Todo, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	coll, err := r.collection()
	if err != nil {
		return nil, err
	}

	var todo Todo
	if err := coll.FindOneAndDelete(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&todo); err != nil {
		return nil, notFoundAsNil(err, "TODOS_DELETE_FAILED")
	}
	return &todo, nil
}

func parseID(id string) (bson.ObjectID, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, false
	}
	return oid, true
}

func notFoundAsNil(err error, code string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return oops.In("todos").Code(code).Wrap(err)
}
