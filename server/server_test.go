package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/ziyixi/tasksync/database"
	"github.com/ziyixi/tasksync/testutils"
	"github.com/ziyixi/tasksync/utils"
)

func setupRouter(t *testing.T, opts ...Option) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := database.New(testutils.NewTestDB(t))
	require.NoError(t, err)
	require.NoError(t, Seed(context.Background(), store))

	return New(store, opts...).Router()
}

func postContext(ctx context.Context, router *gin.Engine, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, Path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	router.ServeHTTP(w, req)
	return w
}

func post(router *gin.Engine, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return postContext(context.Background(), router, body, cookies...)
}

func TestHandleQuery(t *testing.T) {
	t.Run("create then list", func(t *testing.T) {
		router := setupRouter(t)

		w := post(router, `{"operationName":"CreateTask","variables":{"input":{"title":"a","note":"b","category_id":1}}}`)
		require.Equal(t, http.StatusOK, w.Code)
		created := gjson.Get(w.Body.String(), "data.createTask")
		assert.Equal(t, "a", created.Get("title").String())
		assert.Equal(t, int64(0), created.Get("completed").Int())

		w = post(router, `{"operationName":"ListTasks","variables":{"category_id":1}}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "data.tasks.#").Int())

		w = post(router, `{"operationName":"ListTasks","variables":{"category_id":2}}`)
		assert.Equal(t, int64(0), gjson.Get(w.Body.String(), "data.tasks.#").Int())
	})

	t.Run("missing required input", func(t *testing.T) {
		router := setupRouter(t)

		w := post(router, `{"operationName":"CreateTask","variables":{"input":{"title":"a","category_id":1}}}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "note is required", gjson.Get(w.Body.String(), "errors.0.message").String())
		assert.False(t, gjson.Get(w.Body.String(), "data").Exists())
	})

	t.Run("invalid completion", func(t *testing.T) {
		router := setupRouter(t)
		post(router, `{"operationName":"CreateTask","variables":{"input":{"title":"a","note":"b","category_id":1}}}`)

		w := post(router, `{"operationName":"UpdateTask","variables":{"input":{"id":1,"completed":5}}}`)

		assert.Contains(t, gjson.Get(w.Body.String(), "errors.0.message").String(), "completed must be 0 or 1")
	})

	t.Run("sub-task toggle", func(t *testing.T) {
		router := setupRouter(t)
		post(router, `{"operationName":"CreateTask","variables":{"input":{"title":"a","note":"b","category_id":1}}}`)
		post(router, `{"operationName":"CreateSubTask","variables":{"input":{"task_id":1,"title":"step"}}}`)

		w := post(router, `{"operationName":"ToggleSubTask","variables":{"id":1,"completed":1}}`)

		toggled := gjson.Get(w.Body.String(), "data.toggleSubTask")
		assert.Equal(t, int64(1), toggled.Get("completed").Int())
		assert.True(t, toggled.Get("completed_at").Exists())
	})

	t.Run("unknown operation", func(t *testing.T) {
		router := setupRouter(t)

		w := post(router, `{"operationName":"DropTables","variables":{}}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		router := setupRouter(t)

		w := post(router, `{not json`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store calls use the request context", func(t *testing.T) {
		router := setupRouter(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		w := postContext(ctx, router, `{"operationName":"ListCategories"}`)

		assert.Contains(t, gjson.Get(w.Body.String(), "errors.0.message").String(), context.Canceled.Error())
	})
}

func TestHandleQuery_Auth(t *testing.T) {
	router := setupRouter(t, RequireAuth())

	w := post(router, `{"operationName":"ListCategories"}`)
	assert.Equal(t, "unauthorized", gjson.Get(w.Body.String(), "errors.0.message").String())

	w = post(router, `{"operationName":"Login","variables":{"email":"demo@example.com","password":"wrong"}}`)
	assert.True(t, gjson.Get(w.Body.String(), "errors").Exists())

	w = post(router, `{"operationName":"Login","variables":{"email":"demo@example.com","password":"demo"}}`)
	require.True(t, gjson.Get(w.Body.String(), "data.login").Bool())
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == utils.SessionCookieName {
			session = c
		}
	}
	require.NotNil(t, session)

	w = post(router, `{"operationName":"ListCategories"}`, session)
	assert.True(t, gjson.Get(w.Body.String(), "data.categories").Exists())

	post(router, `{"operationName":"Logout"}`, session)
	w = post(router, `{"operationName":"ListCategories"}`, session)
	assert.Equal(t, "unauthorized", gjson.Get(w.Body.String(), "errors.0.message").String())
}

func TestRouter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := database.New(testutils.NewTestDB(t))
	require.NoError(t, err)

	var seen []string
	router := New(store).Router(func(c *gin.Context) {
		seen = append(seen, c.Request.URL.Path)
		c.Next()
	})
	post(router, `{"operationName":"ListCategories"}`)

	assert.Equal(t, []string{Path}, seen)
}
