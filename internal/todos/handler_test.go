package todos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/yourusername/todo-api/internal/validation"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[bson.ObjectID]Todo
	clock time.Time
	err   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items: make(map[bson.ObjectID]Todo),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memoryRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *memoryRepo) List(context.Context) ([]Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]Todo, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id string) (*Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	t, ok := r.items[oid]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *memoryRepo) Create(_ context.Context, todo *Todo) (*Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	record := *todo
	record.ID = bson.NewObjectID()
	record.CreatedAt = r.tick()
	record.UpdatedAt = record.CreatedAt
	r.items[record.ID] = record
	return &record, nil
}

func (r *memoryRepo) Update(_ context.Context, id string, patch Patch) (*Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	t, ok := r.items[oid]
	if !ok {
		return nil, nil
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.IsCompleted != nil {
		t.IsCompleted = *patch.IsCompleted
	}
	t.UpdatedAt = r.tick()
	r.items[oid] = t
	return &t, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) (*Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	oid, ok := parseID(id)
	if !ok {
		return nil, nil
	}
	t, ok := r.items[oid]
	if !ok {
		return nil, nil
	}
	delete(r.items, oid)
	return &t, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *memoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Setup()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := newMemoryRepo()
	router := gin.New()
	NewHandler(repo, logger).Register(router.Group("/todos"))
	return router, repo
}

func perform(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeTodo(t *testing.T, rec *httptest.ResponseRecorder) Todo {
	t.Helper()
	var todo Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &todo), rec.Body.String())
	return todo
}

func TestCreateAndGet(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := perform(router, http.MethodPost, "/todos", `{"title":"buy milk"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeTodo(t, rec)
	assert.Equal(t, "buy milk", created.Title)
	assert.False(t, created.IsCompleted)
	assert.False(t, created.ID.IsZero())

	rec = perform(router, http.MethodGet, "/todos/"+created.ID.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeTodo(t, rec).ID)
}

func TestCreateValidation(t *testing.T) {
	router, repo := newTestRouter(t)

	rec := perform(router, http.MethodPost, "/todos", `{"isCompleted":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title"`)

	rec = perform(router, http.MethodPost, "/todos", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.items)
}

func TestListReturnsCreationOrder(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := perform(router, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, title := range []string{"first", "second"} {
		require.Equal(t, http.StatusCreated, perform(router, http.MethodPost, "/todos", `{"title":"`+title+`"}`).Code)
	}

	rec = perform(router, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Title)
	assert.Equal(t, "second", list[1].Title)
}

func TestUpdatePartial(t *testing.T) {
	router, _ := newTestRouter(t)
	created := decodeTodo(t, perform(router, http.MethodPost, "/todos", `{"title":"write report"}`))

	rec := perform(router, http.MethodPatch, "/todos/"+created.ID.Hex(), `{"isCompleted":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeTodo(t, rec)
	assert.Equal(t, "write report", updated.Title)
	assert.True(t, updated.IsCompleted)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	rec = perform(router, http.MethodPatch, "/todos/"+created.ID.Hex(), `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	router, repo := newTestRouter(t)
	created := decodeTodo(t, perform(router, http.MethodPost, "/todos", `{"title":"temp"}`))

	rec := perform(router, http.MethodDelete, "/todos/"+created.ID.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Todo deleted successfully"}`, rec.Body.String())
	assert.Empty(t, repo.items)

	rec = perform(router, http.MethodDelete, "/todos/"+created.ID.Hex(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	missing := bson.NewObjectID().Hex()

	cases := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"get unknown", http.MethodGet, "/todos/" + missing, ""},
		{"get malformed id", http.MethodGet, "/todos/not-an-id", ""},
		{"update unknown", http.MethodPatch, "/todos/" + missing, `{"title":"x"}`},
		{"delete malformed id", http.MethodDelete, "/todos/123", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := perform(router, tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, `{"error":"Todo not found"}`, rec.Body.String())
		})
	}
}

func TestRepositoryFailure(t *testing.T) {
	router, repo := newTestRouter(t)
	repo.err = errors.New("store unavailable")

	rec := perform(router, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch todos"}`, rec.Body.String())

	rec = perform(router, http.MethodPost, "/todos", `{"title":"x"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to create todo"}`, rec.Body.String())
}
