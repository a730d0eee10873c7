//go:build integration

package users_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/yourusername/todo-api/internal/store"
	"github.com/yourusername/todo-api/internal/users"
)

func setupRepository(t *testing.T) *users.MongoRepository {
	t.Helper()
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := store.DialMongo(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	repo := users.NewMongoRepository(store.StaticDatabase{DB: client.Database("todo_api_it")})
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestMongoRepositoryInsertAndFind(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	created, err := repo.Insert(ctx, users.New("John", "Doe", "John@Example.com", "$2a$12$hash", users.GenderMen))
	require.NoError(t, err)
	assert.False(t, created.ID.IsZero())
	assert.Equal(t, "john@example.com", created.Email)

	byEmail, err := repo.FindByEmail(ctx, " JOHN@example.com ")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "$2a$12$hash", byEmail.PasswordHash)

	byID, err := repo.FindByID(ctx, created.IDHex())
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "John", byID.Firstname)

	missing, err := repo.FindByID(ctx, "not-an-object-id")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMongoRepositoryDuplicateEmail(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	_, err := repo.Insert(ctx, users.New("John", "Doe", "john@example.com", "h1", users.GenderMen))
	require.NoError(t, err)

	_, err = repo.Insert(ctx, users.New("Jane", "Doe", "JOHN@example.com", "h2", users.GenderWomen))
	assert.ErrorIs(t, err, users.ErrDuplicateEmail)
}

func TestMongoRepositoryConcurrentSignupsKeepOneRecord(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Insert(ctx, users.New("Race", "Condition", "race@example.com", "h", users.GenderOther))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, users.ErrDuplicateEmail)
	}
	assert.Equal(t, 1, succeeded)
}
