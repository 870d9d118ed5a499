// Package database is the sqlite store behind the in-process task backend.
// It owns the server-side rules of the task contract: timestamps,
// completed_at bookkeeping, filter conjunction and sub-task cascade.
package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ziyixi/tasksync/schema"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

var (
	// ErrNotFound is returned when the referenced task or sub-task does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidField is returned for update fields the contract does not know.
	ErrInvalidField = errors.New("invalid field")
)

// CategoryRecord is a row of the categories table.
type CategoryRecord struct {
	ID   uint64 `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;not null"`
}

func (CategoryRecord) TableName() string { return "categories" }

// TaskRecord is a row of the tasks table. Dates and timestamps are stored in
// their wire layouts so range filters compare lexically.
type TaskRecord struct {
	ID          uint64 `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Note        string `gorm:"not null"`
	CategoryID  *uint64
	DueDate     *string `gorm:"index"`
	Completed   int32   `gorm:"not null;default:0"`
	CompletedAt *string
	CreatedAt   string
	UpdatedAt   string
	SubTasks    []SubTaskRecord `gorm:"foreignKey:TaskID"`
}

func (TaskRecord) TableName() string { return "tasks" }

// SubTaskRecord is a row of the sub_tasks table.
type SubTaskRecord struct {
	ID          uint64 `gorm:"primaryKey"`
	TaskID      uint64 `gorm:"index;not null"`
	Title       string `gorm:"not null"`
	Note        *string
	DueDate     *string
	Completed   int32 `gorm:"not null;default:0"`
	CompletedAt *string
	CreatedAt   string
	UpdatedAt   string
}

func (SubTaskRecord) TableName() string { return "sub_tasks" }

// UserRecord is an account that can log in.
type UserRecord struct {
	ID           uint64 `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
}

func (UserRecord) TableName() string { return "users" }

// Store serves the task contract from a gorm database.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for server-owned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (or creates) the sqlite database at path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	store, err := New(db, opts...)
	if err != nil {
		return nil, err
	}
	log.Infof("Database initialized at %s", path)
	return store, nil
}

// New migrates db and wraps it. The store uses a single connection so an
// in-memory database is shared by every query.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL DB from GORM: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&CategoryRecord{}, &TaskRecord{}, &SubTaskRecord{}, &UserRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate SQLite database: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) timestamp() string {
	return s.now().Format(schema.TimestampLayout)
}

// completion returns the stored flag and completed_at for a requested state.
func (s *Store) completion(c schema.Completion, ts string) (int32, *string) {
	if !c.Done() {
		return int32(schema.Incomplete), nil
	}
	return int32(schema.Complete), &ts
}

// ListTasks returns the tasks matching every present filter field, each with
// its sub-tasks, ordered by id.
func (s *Store) ListTasks(ctx context.Context, filter schema.TaskFilter) ([]schema.Task, error) {
	query := s.db.WithContext(ctx).
		Preload("SubTasks", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("id")
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.DueDateStart != nil {
		query = query.Where("due_date >= ?", *filter.DueDateStart)
	}
	if filter.DueDateEnd != nil {
		query = query.Where("due_date <= ?", *filter.DueDateEnd)
	}
	if filter.IncompleteOnly {
		query = query.Where("completed = ?", int32(schema.Incomplete))
	}

	var records []TaskRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	tasks := make([]schema.Task, len(records))
	for i, r := range records {
		tasks[i] = r.toSchema()
	}
	return tasks, nil
}

// GetTask returns one task with its sub-tasks.
func (s *Store) GetTask(ctx context.Context, id uint64) (*schema.Task, error) {
	return getTask(s.db.WithContext(ctx), id)
}

func getTask(db *gorm.DB, id uint64) (*schema.Task, error) {
	var record TaskRecord
	err := db.Preload("SubTasks", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&record, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %d: %w", id, err)
	}
	task := record.toSchema()
	return &task, nil
}

// CreateTask inserts an incomplete task. created_at and updated_at are equal.
func (s *Store) CreateTask(ctx context.Context, in schema.NewTaskInput) (*schema.Task, error) {
	ts := s.timestamp()
	categoryID := in.CategoryID
	record := TaskRecord{
		Title:      in.Title,
		Note:       in.Note,
		CategoryID: &categoryID,
		DueDate:    in.DueDate,
		Completed:  int32(schema.Incomplete),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	log.WithField("id", record.ID).Debug("Task created")
	task := record.toSchema()
	return &task, nil
}

// UpdateTask applies a partial update. Only the fields present in fields
// change; completed drives completed_at.
func (s *Store) UpdateTask(ctx context.Context, id uint64, fields map[string]any) (*schema.Task, error) {
	ts := s.timestamp()
	updates := map[string]any{"updated_at": ts}
	for key, value := range fields {
		switch key {
		case "title", "note", "category_id", "due_date":
			updates[key] = value
		case "completed":
			c, ok := value.(schema.Completion)
			if !ok {
				return nil, fmt.Errorf("completed must be 0 or 1: %w", ErrInvalidField)
			}
			updates["completed"], updates["completed_at"] = s.completion(c, ts)
		default:
			return nil, fmt.Errorf("%q: %w", key, ErrInvalidField)
		}
	}

	var task *schema.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&TaskRecord{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("failed to update task %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("task %d: %w", id, ErrNotFound)
		}
		var err error
		task, err = getTask(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"id": id, "fields": len(fields)}).Debug("Task updated")
	return task, nil
}

// DeleteTask removes the task and its sub-tasks. It reports whether the task
// existed.
func (s *Store) DeleteTask(ctx context.Context, id uint64) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&SubTaskRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete sub-tasks of %d: %w", id, err)
		}
		result := tx.Delete(&TaskRecord{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete task %d: %w", id, result.Error)
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// CreateSubTask inserts an incomplete sub-task under an existing task.
func (s *Store) CreateSubTask(ctx context.Context, in schema.NewSubTaskInput) (*schema.SubTask, error) {
	ts := s.timestamp()
	record := SubTaskRecord{
		TaskID:    in.TaskID,
		Title:     in.Title,
		Note:      in.Note,
		DueDate:   in.DueDate,
		Completed: int32(schema.Incomplete),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&TaskRecord{}).Where("id = ?", in.TaskID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("task %d: %w", in.TaskID, ErrNotFound)
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	sub := record.toSchema()
	return &sub, nil
}

// ToggleSubTask sets the sub-task's completion.
func (s *Store) ToggleSubTask(ctx context.Context, id uint64, completed schema.Completion) (*schema.SubTask, error) {
	ts := s.timestamp()
	flag, completedAt := s.completion(completed, ts)

	var record SubTaskRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&SubTaskRecord{}).Where("id = ?", id).Updates(map[string]any{
			"completed":    flag,
			"completed_at": completedAt,
			"updated_at":   ts,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("sub-task %d: %w", id, ErrNotFound)
		}
		return tx.First(&record, id).Error
	})
	if err != nil {
		return nil, err
	}
	sub := record.toSchema()
	return &sub, nil
}

// ListCategories returns every category ordered by id.
func (s *Store) ListCategories(ctx context.Context) ([]schema.Category, error) {
	var records []CategoryRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	categories := make([]schema.Category, len(records))
	for i, r := range records {
		categories[i] = schema.Category{ID: r.ID, Name: r.Name}
	}
	return categories, nil
}

// SeedCategories inserts the named categories that do not exist yet.
func (s *Store) SeedCategories(ctx context.Context, names ...string) error {
	for _, name := range names {
		record := CategoryRecord{Name: name}
		if err := s.db.WithContext(ctx).Where(CategoryRecord{Name: name}).FirstOrCreate(&record).Error; err != nil {
			return fmt.Errorf("failed to seed category %q: %w", name, err)
		}
	}
	return nil
}

// CreateUser registers an account.
func (s *Store) CreateUser(ctx context.Context, email, password string) error {
	record := UserRecord{Email: normalizeEmail(email), PasswordHash: hashPassword(password)}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create user %s: %w", record.Email, err)
	}
	return nil
}

// Authenticate reports whether the credentials match an account.
func (s *Store) Authenticate(ctx context.Context, email, password string) (bool, error) {
	var record UserRecord
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up user: %w", err)
	}
	return record.PasswordHash == hashPassword(password), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (r TaskRecord) toSchema() schema.Task {
	subs := make([]schema.SubTask, len(r.SubTasks))
	for i, sub := range r.SubTasks {
		subs[i] = sub.toSchema()
	}
	return schema.Task{
		ID:          r.ID,
		Title:       r.Title,
		Note:        r.Note,
		CategoryID:  r.CategoryID,
		DueDate:     r.DueDate,
		Completed:   schema.Completion(r.Completed),
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		SubTasks:    subs,
	}
}

func (r SubTaskRecord) toSchema() schema.SubTask {
	return schema.SubTask{
		ID:          r.ID,
		TaskID:      r.TaskID,
		Title:       r.Title,
		Note:        r.Note,
		DueDate:     r.DueDate,
		Completed:   schema.Completion(r.Completed),
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
