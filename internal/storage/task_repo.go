package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type TaskRepo struct {
	store *Store
}

func NewTaskRepo(store *Store) *TaskRepo {
	return &TaskRepo{store: store}
}

const taskColumns = `id, name, description, type, difficulty, deadline, completed,
	coin_reward, growth_reward, attribute_reward, bonus_streak, forgiveness_coupons,
	progress_value, progress_goal, created_at`

func (r *TaskRepo) Insert(ctx context.Context, t Task) (int64, error) {
	res, err := r.store.ExecContext(ctx, `
		INSERT INTO tasks (
			name, description, type, difficulty, deadline, completed,
			coin_reward, growth_reward, attribute_reward, bonus_streak,
			forgiveness_coupons, progress_value, progress_goal
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Name, t.Description, t.Type, t.DifficultyStars, t.Deadline, boolToInt(t.Completed),
		t.CoinReward, t.GrowthReward, t.AttributeReward, t.BonusStreak,
		t.ForgivenessCoupons, t.ProgressValue, t.ProgressGoal)
	if err != nil {
		return 0, fmt.Errorf("task insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("task last insert id: %w", err)
	}
	return id, nil
}

func (r *TaskRepo) Get(ctx context.Context, id int64) (*Task, error) {
	row := r.store.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	return scanTaskRow(row)
}

func (r *TaskRepo) ListAll(ctx context.Context) ([]Task, error) {
	rows, err := r.store.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("task list: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *TaskRepo) ListByType(ctx context.Context, taskType string) ([]Task, error) {
	rows, err := r.store.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE type = ? ORDER BY id ASC`, taskType)
	if err != nil {
		return nil, fmt.Errorf("task list by type: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *TaskRepo) Update(ctx context.Context, t *Task) (bool, error) {
	res, err := r.store.ExecContext(ctx, `
		UPDATE tasks
		SET name = ?, description = ?, type = ?, difficulty = ?, deadline = ?,
			completed = ?, coin_reward = ?, growth_reward = ?, attribute_reward = ?,
			bonus_streak = ?, forgiveness_coupons = ?, progress_value = ?, progress_goal = ?
		WHERE id = ?
	`, t.Name, t.Description, t.Type, t.DifficultyStars, t.Deadline, boolToInt(t.Completed),
		t.CoinReward, t.GrowthReward, t.AttributeReward, t.BonusStreak, t.ForgivenessCoupons,
		t.ProgressValue, t.ProgressGoal, t.ID)
	if err != nil {
		return false, fmt.Errorf("task update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("task update rows: %w", err)
	}
	return n > 0, nil
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.store.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("task delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("task delete rows: %w", err)
	}
	return n > 0, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTaskRow(row scanner) (*Task, error) {
	var (
		t           Task
		description sql.NullString
		deadline    sql.NullTime
		completed   int
	)
	if err := row.Scan(
		&t.ID, &t.Name, &description, &t.Type, &t.DifficultyStars, &deadline, &completed,
		&t.CoinReward, &t.GrowthReward, &t.AttributeReward, &t.BonusStreak,
		&t.ForgivenessCoupons, &t.ProgressValue, &t.ProgressGoal, &t.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("task scan: %w", err)
	}
	if description.Valid {
		v := description.String
		t.Description = &v
	}
	if deadline.Valid {
		v := deadline.Time
		t.Deadline = &v
	}
	t.Completed = completed != 0
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]Task, error) {
	var out []Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task rows: %w", err)
	}
	return out, nil
}
