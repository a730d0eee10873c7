package store

import (
	"context"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// DialMongo は MongoDB クライアントを作成し、Ping で疎通を確認します。
// mongo.Connect 自体はネットワークに触れないため、Ping が実際の接続確認になります。
func DialMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, oops.In("store").Code("STORE_CLIENT_INVALID").Wrap(err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, oops.In("store").Code("STORE_PING_FAILED").Wrap(err)
	}
	return client, nil
}

// DatabaseProvider は接続済みのデータベースハンドルを返すものです。
// リポジトリは接続マネージャーではなくこのインターフェースに依存します。
type DatabaseProvider interface {
	Database() (*mongo.Database, error)
}

// StaticDatabase は既に接続済みの *mongo.Database をそのまま返す DatabaseProvider です。
type StaticDatabase struct {
	DB *mongo.Database
}

// Database は保持しているハンドルを返します。
func (s StaticDatabase) Database() (*mongo.Database, error) {
	if s.DB == nil {
		return nil, ErrStoreUnavailable
	}
	return s.DB, nil
}
