package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/ziyixi/tasksync/schema"
	"github.com/ziyixi/tasksync/utils"
)

// call is one resolved request. ctx is the request context; the gin context
// is only used for cookies.
type call struct {
	ctx  context.Context
	c    *gin.Context
	vars gjson.Result
}

type resolver func(s *Server, call call) (any, error)

var resolvers = map[string]resolver{
	schema.ListTasks.Name:      resolveListTasks,
	schema.ListCategories.Name: resolveListCategories,
	schema.CreateTask.Name:     resolveCreateTask,
	schema.UpdateTask.Name:     resolveUpdateTask,
	schema.DeleteTask.Name:     resolveDeleteTask,
	schema.CreateSubTask.Name:  resolveCreateSubTask,
	schema.ToggleSubTask.Name:  resolveToggleSubTask,
	schema.Login.Name:          resolveLogin,
	schema.Logout.Name:         resolveLogout,
}

// HandleQuery serves one GraphQL-over-HTTP request.
func HandleQuery(c *gin.Context) {
	s := c.MustGet(keyServer).(*Server)

	raw, err := c.GetRawData()
	if err != nil || !gjson.ValidBytes(raw) {
		c.JSON(http.StatusBadRequest, ErrorBody("request body is not valid JSON"))
		return
	}
	body := gjson.ParseBytes(raw)
	name := body.Get("operationName").String()
	session, _ := c.Cookie(utils.SessionCookieName)
	entry := log.WithFields(logrus.Fields{
		"operation":  name,
		"request_id": c.GetHeader("X-Request-Id"),
	})

	op, known := schema.Lookup(name)
	resolve, ok := resolvers[name]
	if !known || !ok {
		c.JSON(http.StatusBadRequest, ErrorBody(fmt.Sprintf("unknown operation %q", name)))
		return
	}
	if op.Name != schema.Login.Name && !s.authorized(session) {
		c.JSON(http.StatusOK, ErrorBody(errUnauthorized.Error()))
		return
	}

	result, err := resolve(s, call{ctx: c.Request.Context(), c: c, vars: body.Get("variables")})
	if err != nil {
		entry.Debugf("Resolver failed: %v", err)
		c.JSON(http.StatusOK, ErrorBody(err.Error()))
		return
	}
	entry.Debug("Resolved")
	c.JSON(http.StatusOK, gin.H{"data": gin.H{op.Field: result}})
}

func optionalString(v gjson.Result) *string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	return &s
}

func requiredString(input gjson.Result, key string) (string, error) {
	v := input.Get(key)
	if !v.Exists() || v.Type == gjson.Null || v.String() == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v.String(), nil
}

func requiredID(input gjson.Result, key string) (uint64, error) {
	v := input.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return 0, fmt.Errorf("%s is required", key)
	}
	return v.Uint(), nil
}

func completion(v gjson.Result) (schema.Completion, error) {
	switch {
	case v.Type == gjson.Number && v.Int() == 0:
		return schema.Incomplete, nil
	case v.Type == gjson.Number && v.Int() == 1:
		return schema.Complete, nil
	}
	return 0, fmt.Errorf("completed must be 0 or 1, got %s", v.Raw)
}

func resolveListTasks(s *Server, call call) (any, error) {
	var filter schema.TaskFilter
	if v := call.vars.Get("category_id"); v.Exists() && v.Type != gjson.Null {
		id := v.Uint()
		filter.CategoryID = &id
	}
	filter.DueDateStart = optionalString(call.vars.Get("due_date_start"))
	filter.DueDateEnd = optionalString(call.vars.Get("due_date_end"))
	filter.IncompleteOnly = call.vars.Get("incomplete_only").Bool()
	return s.store.ListTasks(call.ctx, filter)
}

func resolveListCategories(s *Server, call call) (any, error) {
	return s.store.ListCategories(call.ctx)
}

func resolveCreateTask(s *Server, call call) (any, error) {
	input := call.vars.Get("input")
	var (
		in  schema.NewTaskInput
		err error
	)
	if in.Title, err = requiredString(input, "title"); err != nil {
		return nil, err
	}
	if in.Note, err = requiredString(input, "note"); err != nil {
		return nil, err
	}
	if in.CategoryID, err = requiredID(input, "category_id"); err != nil {
		return nil, err
	}
	in.DueDate = optionalString(input.Get("due_date"))
	return s.store.CreateTask(call.ctx, in)
}

func resolveUpdateTask(s *Server, call call) (any, error) {
	input := call.vars.Get("input")
	id, err := requiredID(input, "id")
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	input.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "id":
		case "category_id":
			fields["category_id"] = value.Uint()
		case "due_date":
			fields["due_date"] = optionalString(value)
		case "completed":
			var flag schema.Completion
			if flag, err = completion(value); err == nil {
				fields["completed"] = flag
			}
		default:
			fields[key.String()] = value.Value()
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.UpdateTask(call.ctx, id, fields)
}

func resolveDeleteTask(s *Server, call call) (any, error) {
	id, err := requiredID(call.vars, "id")
	if err != nil {
		return nil, err
	}
	return s.store.DeleteTask(call.ctx, id)
}

func resolveCreateSubTask(s *Server, call call) (any, error) {
	input := call.vars.Get("input")
	var (
		in  schema.NewSubTaskInput
		err error
	)
	if in.TaskID, err = requiredID(input, "task_id"); err != nil {
		return nil, err
	}
	if in.Title, err = requiredString(input, "title"); err != nil {
		return nil, err
	}
	in.Note = optionalString(input.Get("note"))
	in.DueDate = optionalString(input.Get("due_date"))
	return s.store.CreateSubTask(call.ctx, in)
}

func resolveToggleSubTask(s *Server, call call) (any, error) {
	id, err := requiredID(call.vars, "id")
	if err != nil {
		return nil, err
	}
	completed, err := completion(call.vars.Get("completed"))
	if err != nil {
		return nil, err
	}
	sub, err := s.store.ToggleSubTask(call.ctx, id, completed)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"id":           sub.ID,
		"completed":    sub.Completed,
		"completed_at": sub.CompletedAt,
		"updated_at":   sub.UpdatedAt,
	}, nil
}

func resolveLogin(s *Server, call call) (any, error) {
	email := call.vars.Get("email").String()
	ok, err := s.store.Authenticate(call.ctx, email, call.vars.Get("password").String())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("invalid email or password")
	}

	session := uuid.NewString()
	s.openSession(email, session)
	call.c.SetCookie(utils.SessionCookieName, session, 0, "/", "", false, true)
	return true, nil
}

func resolveLogout(s *Server, call call) (any, error) {
	if session, err := call.c.Cookie(utils.SessionCookieName); err == nil {
		s.closeSession(session)
	}
	call.c.SetCookie(utils.SessionCookieName, "", -1, "/", "", false, true)
	return true, nil
}
