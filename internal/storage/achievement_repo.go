package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type AchievementRepo struct {
	store *Store
}

func NewAchievementRepo(store *Store) *AchievementRepo {
	return &AchievementRepo{store: store}
}

const achievementColumns = `id, owner, creator, name, description, type, reward_type,
	progress_mode, conditions, progress_value, progress_goal, reward_coins,
	reward_attributes, unlocked, completed_at, gallery_group, created_at`

func (r *AchievementRepo) Insert(ctx context.Context, a Achievement) (int64, error) {
	res, err := r.store.ExecContext(ctx, `
		INSERT INTO achievements (
			owner, creator, name, description, type, reward_type, progress_mode,
			conditions, progress_value, progress_goal, reward_coins,
			reward_attributes, unlocked, completed_at, gallery_group
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Owner, a.Creator, a.Name, a.Description, a.Type, a.RewardType, a.ProgressMode,
		a.Conditions, a.ProgressVal, a.ProgressGoal, a.RewardCoins,
		a.RewardAttrs, boolToInt(a.Unlocked), a.CompletedAt, a.GalleryGroup)
	if err != nil {
		return 0, fmt.Errorf("achievement insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("achievement last insert id: %w", err)
	}
	return id, nil
}

func (r *AchievementRepo) ListByOwner(ctx context.Context, owner string) ([]Achievement, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+achievementColumns+` FROM achievements WHERE owner = ? ORDER BY id ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("achievement list: %w", err)
	}
	defer rows.Close()

	var out []Achievement
	for rows.Next() {
		a, err := scanAchievementRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("achievement rows: %w", err)
	}
	return out, nil
}

func (r *AchievementRepo) Get(ctx context.Context, id int64) (*Achievement, error) {
	row := r.store.QueryRowContext(ctx,
		`SELECT `+achievementColumns+` FROM achievements WHERE id = ?`, id)
	return scanAchievementRow(row)
}

func (r *AchievementRepo) Update(ctx context.Context, a *Achievement) (bool, error) {
	res, err := r.store.ExecContext(ctx, `
		UPDATE achievements
		SET owner = ?, creator = ?, name = ?, description = ?, type = ?, reward_type = ?,
			progress_mode = ?, conditions = ?, progress_value = ?, progress_goal = ?,
			reward_coins = ?, reward_attributes = ?, unlocked = ?, completed_at = ?,
			gallery_group = ?
		WHERE id = ?
	`, a.Owner, a.Creator, a.Name, a.Description, a.Type, a.RewardType, a.ProgressMode,
		a.Conditions, a.ProgressVal, a.ProgressGoal, a.RewardCoins, a.RewardAttrs,
		boolToInt(a.Unlocked), a.CompletedAt, a.GalleryGroup, a.ID)
	if err != nil {
		return false, fmt.Errorf("achievement update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("achievement update rows: %w", err)
	}
	return n > 0, nil
}

func (r *AchievementRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.store.ExecContext(ctx, `DELETE FROM achievements WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("achievement delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("achievement delete rows: %w", err)
	}
	return n > 0, nil
}

// CountRewardCustomInMonth counts reward-bearing custom achievements created
// by the owner in the given month (monthToken is formatted "2006-01").
func (r *AchievementRepo) CountRewardCustomInMonth(ctx context.Context, owner, monthToken string) (int, error) {
	row := r.store.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM achievements
		WHERE owner = ? AND type = 'Custom' AND reward_type = 'WithReward'
			AND strftime('%Y-%m', created_at) = ?
	`, owner, monthToken)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("achievement month count: %w", err)
	}
	return n, nil
}

func scanAchievementRow(row scanner) (*Achievement, error) {
	var (
		a           Achievement
		unlocked    int
		completedAt sql.NullTime
	)
	if err := row.Scan(
		&a.ID, &a.Owner, &a.Creator, &a.Name, &a.Description, &a.Type, &a.RewardType,
		&a.ProgressMode, &a.Conditions, &a.ProgressVal, &a.ProgressGoal, &a.RewardCoins,
		&a.RewardAttrs, &unlocked, &completedAt, &a.GalleryGroup, &a.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("achievement scan: %w", err)
	}
	a.Unlocked = unlocked != 0
	if completedAt.Valid {
		v := completedAt.Time
		a.CompletedAt = &v
	}
	return &a, nil
}
