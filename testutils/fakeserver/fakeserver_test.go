package fakeserver

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/ziyixi/tasksync/server"
)

func send(endpoint, body string) (gjson.Result, error) {
	resp, err := http.Post(endpoint, "application/json", strings.NewReader(body))
	if err != nil {
		return gjson.Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(raw), nil
}

func post(t *testing.T, endpoint, body string) gjson.Result {
	t.Helper()

	result, err := send(endpoint, body)
	require.NoError(t, err)
	return result
}

func TestServer_Requests(t *testing.T) {
	s, endpoint := Start(t)

	post(t, endpoint, `{"operationName":"CreateTask","variables":{"input":{"title":"a","note":"b","category_id":1}}}`)
	body := post(t, endpoint, `{"operationName":"ListTasks","variables":{"category_id":1}}`)

	assert.Equal(t, int64(1), body.Get("data.tasks.#").Int(), "recorded body is passed on to the handler")
	recorded := s.Requests("ListTasks")
	require.Len(t, recorded, 1)
	assert.Equal(t, uint64(1), recorded[0].Variables.Get("category_id").Uint())
	assert.Len(t, s.Requests(), 2)

	s.ResetRequests()
	assert.Empty(t, s.Requests())
}

func TestServer_FailNext(t *testing.T) {
	s, endpoint := Start(t)
	s.FailNext("ListCategories", "boom")

	body := post(t, endpoint, `{"operationName":"ListCategories"}`)
	assert.Equal(t, "boom", body.Get("errors.0.message").String())

	body = post(t, endpoint, `{"operationName":"ListCategories"}`)
	assert.Equal(t, int64(len(server.DefaultCategories)), body.Get("data.categories.#").Int())
}

func TestServer_Hold(t *testing.T) {
	s, endpoint := Start(t)
	gate := s.Hold("ListCategories")

	done := make(chan gjson.Result, 1)
	go func() {
		body, _ := send(endpoint, `{"operationName":"ListCategories"}`)
		done <- body
	}()

	select {
	case <-gate.Entered():
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the server")
	}
	select {
	case <-done:
		t.Fatal("held request answered before release")
	default:
	}

	gate.Release()
	gate.Release()
	body := <-done
	assert.True(t, body.Get("data.categories").Exists())
}
