// Package view keeps the state a task list view renders from and implements
// the synchronization protocol: every successful mutation re-issues the
// active list query, with the filter that is active when the mutation
// completes, and does not return until that refetch has finished.
package view

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/ziyixi/tasksync/schema"
	"github.com/ziyixi/tasksync/todo"
	"github.com/ziyixi/tasksync/transport"
	"github.com/ziyixi/tasksync/utils"
	"golang.org/x/sync/errgroup"
)

// maxRefetchAttempts bounds how often a refetch restarts because the filter
// changed while it was in flight.
const maxRefetchAttempts = 3

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Board is the state of one task list view.
type Board struct {
	client  *todo.Client
	log     logrus.FieldLogger
	pending *Pending
	onTasks func([]schema.Task)

	mu         sync.RWMutex
	filter     schema.TaskFilter
	generation uint64 // bumped on every filter change
	seq        uint64 // last fetch issued
	published  uint64 // last fetch whose network result is in tasks
	landed     uint64 // number of network results published
	tasks      []schema.Task
	categories []schema.Category
}

// fetch identifies one list request and the board state it was issued in.
type fetch struct {
	filter     schema.TaskFilter
	generation uint64
	seq        uint64
	landed     uint64
}

type options struct {
	logger          logrus.FieldLogger
	onTasks         func([]schema.Task)
	onPendingChange func(id uint64, kind ActionKind, pending bool)
	filter          schema.TaskFilter
}

// Option configures a Board.
type Option func(*options)

// WithLogger replaces the package logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// OnTasks is called with the new list every time it changes.
func OnTasks(fn func([]schema.Task)) Option {
	return func(o *options) { o.onTasks = fn }
}

// OnPendingChange is called when an action starts or settles.
func OnPendingChange(fn func(id uint64, kind ActionKind, pending bool)) Option {
	return func(o *options) { o.onPendingChange = fn }
}

// WithFilter sets the initial filter.
func WithFilter(f schema.TaskFilter) Option {
	return func(o *options) { o.filter = f }
}

// NewBoard creates a board backed by the data-access client.
func NewBoard(client *todo.Client, opts ...Option) *Board {
	o := options{logger: log}
	for _, opt := range opts {
		opt(&o)
	}
	return &Board{
		client:  client,
		log:     o.logger,
		pending: NewPending(o.onPendingChange),
		onTasks: o.onTasks,
		filter:  o.filter,
	}
}

// SetFilter replaces the active filter. Results of fetches issued under the
// previous filter are discarded from then on.
func (b *Board) SetFilter(f schema.TaskFilter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.filter = f
	b.generation++
}

// Filter returns the active filter.
func (b *Board) Filter() schema.TaskFilter {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.filter
}

// Tasks returns a copy of the current list.
func (b *Board) Tasks() []schema.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return slices.Clone(b.tasks)
}

// Task looks up a task of the current list.
func (b *Board) Task(id uint64) (schema.Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return schema.Task{}, false
}

// Categories returns a copy of the loaded categories.
func (b *Board) Categories() []schema.Category {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return slices.Clone(b.categories)
}

// CategoryName resolves a task's category for display.
func (b *Board) CategoryName(id *uint64) string {
	if id == nil {
		return utils.Uncategorized
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, c := range b.categories {
		if c.ID == *id {
			return c.Name
		}
	}
	return utils.FormatID(*id)
}

// Pending exposes the per-entity action state.
func (b *Board) Pending() *Pending {
	return b.pending
}

// Load fetches the list for the active filter and the categories
// concurrently. A cached list is published first, then the fresh one.
func (b *Board) Load(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f := b.begin()
		tasks, err := b.client.ListTasks(gctx, f.filter, todo.OnCachedTasks(func(cached []schema.Task) {
			b.publishCached(f, cached)
		}))
		if err != nil {
			return err
		}
		b.publish(f, tasks)
		return nil
	})
	g.Go(func() error {
		categories, err := b.client.ListCategories(gctx)
		if err != nil {
			return err
		}
		b.mu.Lock()
		b.categories = categories
		b.mu.Unlock()
		return nil
	})
	return g.Wait()
}

// Refresh re-issues the list query over the network using the filter that is
// active now. If the filter changes while the request is in flight, the
// stale result is dropped and the query is issued again for the new filter.
func (b *Board) Refresh(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		f := b.begin()
		entry := b.log.WithFields(logrus.Fields{"attempt": attempt, "filter": f.filter.Variables()})
		entry.Debug("Refetching task list")

		tasks, err := b.client.ListTasks(ctx, f.filter, todo.WithPolicy(transport.NetworkOnly))
		if err != nil {
			entry.Warnf("Refetch failed: %v", err)
			return err
		}
		if b.publish(f, tasks) || !b.filterChangedSince(f.generation) {
			return nil
		}
		if attempt >= maxRefetchAttempts {
			entry.Warn("Filter kept changing during refetch, giving up")
			return nil
		}
	}
}

func (b *Board) begin() fetch {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	return fetch{filter: b.filter, generation: b.generation, seq: b.seq, landed: b.landed}
}

func (b *Board) filterChangedSince(generation uint64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.generation != generation
}

// publish installs a network result unless the filter changed since the fetch
// began or a later network result has already been published. A later cached
// result never blocks it.
func (b *Board) publish(f fetch, tasks []schema.Task) bool {
	b.mu.Lock()
	if f.generation != b.generation || f.seq < b.published {
		b.mu.Unlock()
		return false
	}
	b.published = f.seq
	b.landed++
	b.tasks = tasks
	snapshot := slices.Clone(tasks)
	b.mu.Unlock()

	b.notify(snapshot)
	return true
}

// publishCached shows a cached result while its fetch revalidates. It is
// dropped once any network result has landed after the fetch began, and it
// does not advance published.
func (b *Board) publishCached(f fetch, tasks []schema.Task) bool {
	b.mu.Lock()
	if f.generation != b.generation || f.landed != b.landed {
		b.mu.Unlock()
		return false
	}
	b.tasks = tasks
	snapshot := slices.Clone(tasks)
	b.mu.Unlock()

	b.notify(snapshot)
	return true
}

func (b *Board) notify(snapshot []schema.Task) {
	if b.onTasks != nil {
		b.onTasks(snapshot)
	}
}

// reconcile applies a mutation result to the current list so subscribers see
// it before the refetch lands. fn returns false when nothing changed.
func (b *Board) reconcile(fn func(tasks []schema.Task) ([]schema.Task, bool)) {
	b.mu.Lock()
	tasks, changed := fn(slices.Clone(b.tasks))
	if !changed {
		b.mu.Unlock()
		return
	}
	b.tasks = tasks
	snapshot := slices.Clone(tasks)
	b.mu.Unlock()

	b.notify(snapshot)
}

func (b *Board) replaceTask(task schema.Task) {
	b.reconcile(func(tasks []schema.Task) ([]schema.Task, bool) {
		for i := range tasks {
			if tasks[i].ID == task.ID {
				tasks[i] = task
				return tasks, true
			}
		}
		return tasks, false
	})
}

func (b *Board) removeTask(id uint64) {
	b.reconcile(func(tasks []schema.Task) ([]schema.Task, bool) {
		n := len(tasks)
		tasks = slices.DeleteFunc(tasks, func(t schema.Task) bool { return t.ID == id })
		return tasks, len(tasks) != n
	})
}

func (b *Board) mergeSubTask(sub schema.SubTask) {
	b.reconcile(func(tasks []schema.Task) ([]schema.Task, bool) {
		for i := range tasks {
			j := slices.IndexFunc(tasks[i].SubTasks, func(s schema.SubTask) bool { return s.ID == sub.ID })
			if j < 0 {
				continue
			}
			merged := slices.Clone(tasks[i].SubTasks)
			merged[j].Completed = sub.Completed
			merged[j].CompletedAt = sub.CompletedAt
			merged[j].UpdatedAt = sub.UpdatedAt
			tasks[i].SubTasks = merged
			return tasks, true
		}
		return tasks, false
	})
}

// settle runs the refetch that follows a successful mutation.
func (b *Board) settle(ctx context.Context, op schema.Operation) error {
	if err := b.Refresh(ctx); err != nil {
		return &RefetchError{Operation: op.Name, Err: err}
	}
	return nil
}

// CreateTask creates a task and waits for the refreshed list.
func (b *Board) CreateTask(ctx context.Context, form todo.TaskForm) (*schema.Task, error) {
	done, ok := b.pending.Begin(0, ActionCreate)
	if !ok {
		return nil, ErrInFlight
	}
	defer done()

	task, err := b.client.CreateTask(ctx, form)
	if err != nil {
		return nil, err
	}
	return task, b.settle(ctx, schema.CreateTask)
}

// EditTask applies the edit form and waits for the refreshed list.
func (b *Board) EditTask(ctx context.Context, form todo.EditForm) (*schema.Task, error) {
	patch, err := form.Patch()
	if err != nil {
		return nil, err
	}
	return b.UpdateTask(ctx, patch)
}

// UpdateTask sends the patch and waits for the refreshed list.
func (b *Board) UpdateTask(ctx context.Context, patch *todo.TaskPatch) (*schema.Task, error) {
	if patch == nil || patch.Empty() {
		return nil, todo.ErrSkipped
	}
	return b.updateTask(ctx, patch, ActionUpdate)
}

// ToggleTask flips the task's completion and waits for the refreshed list.
func (b *Board) ToggleTask(ctx context.Context, task schema.Task) (*schema.Task, error) {
	patch := todo.NewTaskPatch(task.ID).SetCompleted(task.Completed.Inverse())
	return b.updateTask(ctx, patch, ActionToggle)
}

func (b *Board) updateTask(ctx context.Context, patch *todo.TaskPatch, kind ActionKind) (*schema.Task, error) {
	done, ok := b.pending.Begin(patch.ID(), kind)
	if !ok {
		return nil, ErrInFlight
	}
	defer done()

	task, err := b.client.UpdateTask(ctx, patch)
	if err != nil {
		return nil, err
	}
	b.replaceTask(*task)
	return task, b.settle(ctx, schema.UpdateTask)
}

// DeleteTask deletes the task and waits for the refreshed list.
func (b *Board) DeleteTask(ctx context.Context, id uint64) (bool, error) {
	done, ok := b.pending.Begin(id, ActionDelete)
	if !ok {
		return false, ErrInFlight
	}
	defer done()

	deleted, err := b.client.DeleteTask(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		b.removeTask(id)
	}
	return deleted, b.settle(ctx, schema.DeleteTask)
}

// CreateSubTask adds a sub-task and waits for the refreshed list.
func (b *Board) CreateSubTask(ctx context.Context, form todo.SubTaskForm) (*schema.SubTask, error) {
	taskID, ok := utils.ParseID(form.TaskID)
	if !ok {
		return nil, todo.ErrSkipped
	}
	done, ok := b.pending.Begin(taskID, ActionCreateSubTask)
	if !ok {
		return nil, ErrInFlight
	}
	defer done()

	sub, err := b.client.CreateSubTask(ctx, form)
	if err != nil {
		return nil, err
	}
	return sub, b.settle(ctx, schema.CreateSubTask)
}

// ToggleSubTask flips the sub-task's completion and waits for the refreshed
// list.
func (b *Board) ToggleSubTask(ctx context.Context, sub schema.SubTask) (*schema.SubTask, error) {
	done, ok := b.pending.Begin(sub.ID, ActionToggleSubTask)
	if !ok {
		return nil, ErrInFlight
	}
	defer done()

	toggled, err := b.client.ToggleSubTask(ctx, sub.ID, sub.Completed.Inverse())
	if err != nil {
		return nil, err
	}
	b.mergeSubTask(*toggled)
	return toggled, b.settle(ctx, schema.ToggleSubTask)
}

// IsSettled reports whether err leaves the list consistent with the server:
// the action either succeeded with its refetch or never left the client.
func IsSettled(err error) bool {
	return err == nil || errors.Is(err, todo.ErrSkipped) || errors.Is(err, ErrInFlight)
}
