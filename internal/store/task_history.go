package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/kubev2v/engine-scheduler/internal/models"
	srvErrors "github.com/kubev2v/engine-scheduler/pkg/errors"
)

// TaskHistoryStore persists finished task executions.
type TaskHistoryStore struct {
	db QueryInterceptor
}

func NewTaskHistoryStore(db QueryInterceptor) *TaskHistoryStore {
	return &TaskHistoryStore{db: db}
}

func (s *TaskHistoryStore) Insert(ctx context.Context, t models.TaskExecution) error {
	query, args, err := sq.Insert(taskHistoryTable).
		Columns(taskHistoryColumns...).
		Values(
			t.ID,
			t.Name,
			t.Worker,
			int64(t.Seq),
			t.StartedAt.UTC(),
			t.FinishedAt.UTC(),
			t.Error,
			t.Panicked,
		).ToSql()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *TaskHistoryStore) Get(ctx context.Context, id string) (*models.TaskExecution, error) {
	query, args, err := sq.Select(taskHistoryColumns...).
		From(taskHistoryTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	t, err := scanTaskExecution(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewTaskNotFoundError(id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns executions, most recent first.
func (s *TaskHistoryStore) List(ctx context.Context, opts ...ListOption) ([]models.TaskExecution, error) {
	builder := sq.Select(taskHistoryColumns...).
		From(taskHistoryTable).
		OrderBy("started_at DESC", "seq DESC")

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.TaskExecution
	for rows.Next() {
		t, err := scanTaskExecution(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *TaskHistoryStore) Count(ctx context.Context, opts ...ListOption) (int, error) {
	builder := sq.Select("COUNT(*)").From(taskHistoryTable)

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// DeleteBefore removes executions that started before t and returns how
// many were removed.
func (s *TaskHistoryStore) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	query, args, err := sq.Delete(taskHistoryTable).
		Where(sq.Lt{"started_at": t.UTC()}).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskExecution(row rowScanner) (models.TaskExecution, error) {
	var (
		t   models.TaskExecution
		seq int64
	)
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Worker,
		&seq,
		&t.StartedAt,
		&t.FinishedAt,
		&t.Error,
		&t.Panicked,
	)
	t.Seq = uint64(seq)
	return t, err
}

type ListOption func(sq.SelectBuilder) sq.SelectBuilder

// ByFailed keeps failed executions when failed is true and successful ones
// otherwise.
func ByFailed(failed bool) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if failed {
			return b.Where(sq.Or{sq.NotEq{"error_message": ""}, sq.Eq{"panicked": true}})
		}
		return b.Where(sq.And{sq.Eq{"error_message": ""}, sq.Eq{"panicked": false}})
	}
}

func ByWorkers(workers ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(workers) == 0 {
			return b
		}
		return b.Where(sq.Eq{"worker": workers})
	}
}

func ByNames(names ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(names) == 0 {
			return b
		}
		return b.Where(sq.Eq{"name": names})
	}
}

func StartedAfter(t time.Time) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.GtOrEq{"started_at": t.UTC()})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(limit)
	}
}

func WithOffset(offset uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Offset(offset)
	}
}
