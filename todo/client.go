// Package todo provides one data-access function per operation of the task
// endpoint. Inputs are validated before any request is built; a rejected
// input returns ErrSkipped without reaching the transport.
package todo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/ziyixi/tasksync/schema"
	"github.com/ziyixi/tasksync/transport"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Transport executes operations. *transport.Client implements it.
type Transport interface {
	Execute(ctx context.Context, req transport.Request) (gjson.Result, error)
}

// sessionResetter is implemented by transports that keep a session.
type sessionResetter interface {
	ResetSession()
}

// Client is the data-access layer for tasks, sub-tasks and categories.
type Client struct {
	transport Transport
	log       logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger replaces the package logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a Client on top of the transport.
func NewClient(t Transport, opts ...Option) *Client {
	c := &Client{transport: t, log: log}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryOptions struct {
	policy   transport.FetchPolicy
	onCached func(gjson.Result)
}

// QueryOption adjusts how a read uses the transport cache.
type QueryOption func(*queryOptions)

// WithPolicy overrides the default fetch policy of a read.
func WithPolicy(p transport.FetchPolicy) QueryOption {
	return func(o *queryOptions) { o.policy = p }
}

// OnCachedTasks receives the cached task list before it is revalidated.
// It only fires under transport.CacheAndNetwork.
func OnCachedTasks(fn func([]schema.Task)) QueryOption {
	return func(o *queryOptions) {
		o.onCached = func(data gjson.Result) {
			var tasks []schema.Task
			if err := json.Unmarshal([]byte(data.Raw), &tasks); err != nil {
				return
			}
			fn(tasks)
		}
	}
}

// ListTasks returns the tasks matching the filter. The default policy serves
// a cached list first and then revalidates it.
func (c *Client) ListTasks(ctx context.Context, filter schema.TaskFilter, opts ...QueryOption) ([]schema.Task, error) {
	o := queryOptions{policy: transport.CacheAndNetwork}
	for _, opt := range opts {
		opt(&o)
	}
	var tasks []schema.Task
	err := c.execute(ctx, transport.Request{
		Operation: schema.ListTasks,
		Variables: filter.Variables(),
		Policy:    o.policy,
		OnCached:  o.onCached,
	}, &tasks)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListCategories returns all categories. Categories rarely change, so the
// default policy is cache-first.
func (c *Client) ListCategories(ctx context.Context, opts ...QueryOption) ([]schema.Category, error) {
	o := queryOptions{policy: transport.CacheFirst}
	for _, opt := range opts {
		opt(&o)
	}
	var categories []schema.Category
	err := c.execute(ctx, transport.Request{
		Operation: schema.ListCategories,
		Policy:    o.policy,
		OnCached:  o.onCached,
	}, &categories)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// CreateTask creates a task from the form.
func (c *Client) CreateTask(ctx context.Context, form TaskForm) (*schema.Task, error) {
	in, err := form.Input()
	if err != nil {
		return nil, c.skipped(schema.CreateTask, err)
	}
	var task schema.Task
	if err := c.execute(ctx, transport.Request{Operation: schema.CreateTask, Variables: in.Variables()}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask sends the patch. An empty patch is never sent.
func (c *Client) UpdateTask(ctx context.Context, patch *TaskPatch) (*schema.Task, error) {
	if patch == nil || patch.Empty() {
		return nil, c.skipped(schema.UpdateTask, ErrSkipped)
	}
	var task schema.Task
	if err := c.execute(ctx, transport.Request{Operation: schema.UpdateTask, Variables: patch.Variables()}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// EditTask builds the patch from the form and sends it.
func (c *Client) EditTask(ctx context.Context, form EditForm) (*schema.Task, error) {
	patch, err := form.Patch()
	if err != nil {
		return nil, c.skipped(schema.UpdateTask, err)
	}
	return c.UpdateTask(ctx, patch)
}

// ToggleTask flips the completion state of the task.
func (c *Client) ToggleTask(ctx context.Context, task schema.Task) (*schema.Task, error) {
	return c.UpdateTask(ctx, NewTaskPatch(task.ID).SetCompleted(task.Completed.Inverse()))
}

// DeleteTask hard-deletes the task and its sub-tasks.
func (c *Client) DeleteTask(ctx context.Context, id uint64) (bool, error) {
	var deleted bool
	if err := c.execute(ctx, transport.Request{
		Operation: schema.DeleteTask,
		Variables: map[string]any{"id": id},
	}, &deleted); err != nil {
		return false, err
	}
	return deleted, nil
}

// CreateSubTask creates a sub-task under an existing task.
func (c *Client) CreateSubTask(ctx context.Context, form SubTaskForm) (*schema.SubTask, error) {
	in, err := form.Input()
	if err != nil {
		return nil, c.skipped(schema.CreateSubTask, err)
	}
	var sub schema.SubTask
	if err := c.execute(ctx, transport.Request{Operation: schema.CreateSubTask, Variables: in.Variables()}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ToggleSubTask sets the completion state of a sub-task. The result only
// carries id, completed, completed_at and updated_at.
func (c *Client) ToggleSubTask(ctx context.Context, id uint64, completed schema.Completion) (*schema.SubTask, error) {
	var sub schema.SubTask
	if err := c.execute(ctx, transport.Request{
		Operation: schema.ToggleSubTask,
		Variables: map[string]any{"id": id, "completed": completed},
	}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Login opens a session. The endpoint's answer is opaque; it is reported as
// whether the login was accepted.
func (c *Client) Login(ctx context.Context, creds Credentials) (bool, error) {
	vars, err := creds.variables()
	if err != nil {
		return false, c.skipped(schema.Login, err)
	}
	data, err := c.run(ctx, transport.Request{Operation: schema.Login, Variables: vars})
	if err != nil {
		return false, err
	}
	return accepted(data), nil
}

// Logout closes the session and drops everything cached for it.
func (c *Client) Logout(ctx context.Context) (bool, error) {
	data, err := c.run(ctx, transport.Request{Operation: schema.Logout})
	if err != nil {
		return false, err
	}
	if r, ok := c.transport.(sessionResetter); ok {
		r.ResetSession()
	}
	return accepted(data), nil
}

func (c *Client) skipped(op schema.Operation, err error) error {
	c.log.WithField("operation", op.Name).Debug("Input rejected, request not sent")
	return err
}

// run executes the request. Transport errors pass through unchanged; every
// other failure becomes an OperationFailedError.
func (c *Client) run(ctx context.Context, req transport.Request) (gjson.Result, error) {
	data, err := c.transport.Execute(ctx, req)
	if err != nil {
		var transportErr *transport.Error
		if errors.As(err, &transportErr) {
			return gjson.Result{}, err
		}
		return gjson.Result{}, &OperationFailedError{Operation: req.Operation.Name, Err: err}
	}
	return data, nil
}

func (c *Client) execute(ctx context.Context, req transport.Request, out any) error {
	data, err := c.run(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return &OperationFailedError{
			Operation: req.Operation.Name,
			Err:       fmt.Errorf("failed to decode result: %w", err),
		}
	}
	return nil
}

func accepted(data gjson.Result) bool {
	switch data.Type {
	case gjson.True:
		return true
	case gjson.String:
		return data.Str != ""
	case gjson.Number:
		return data.Num != 0
	case gjson.JSON:
		return true
	default:
		return false
	}
}
