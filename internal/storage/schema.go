package storage

import (
	"context"
	"database/sql"
	"fmt"
)

func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			level INTEGER DEFAULT 1,
			coins INTEGER DEFAULT 0,
			growth INTEGER DEFAULT 0,
			attributes TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT,
			type TEXT NOT NULL,
			difficulty INTEGER DEFAULT 1,
			deadline DATETIME,
			completed INTEGER DEFAULT 0,

			coin_reward INTEGER DEFAULT 0,
			growth_reward INTEGER DEFAULT 0,
			attribute_reward TEXT,
			bonus_streak INTEGER DEFAULT 0,
			forgiveness_coupons INTEGER DEFAULT 0,
			progress_value INTEGER DEFAULT 0,
			progress_goal INTEGER DEFAULT 100,

			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS achievements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			owner TEXT NOT NULL,
			creator TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			type TEXT NOT NULL,
			reward_type TEXT NOT NULL,
			progress_mode TEXT NOT NULL,
			conditions TEXT NOT NULL,
			progress_value INTEGER DEFAULT 0,
			progress_goal INTEGER DEFAULT 1,
			reward_coins INTEGER DEFAULT 0,
			reward_attributes TEXT DEFAULT '',
			unlocked INTEGER DEFAULT 0,
			completed_at DATETIME,
			gallery_group TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS shop_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			item_type TEXT NOT NULL,
			price_coins INTEGER DEFAULT 0,
			purchase_limit INTEGER DEFAULT 0,
			available INTEGER DEFAULT 1,
			prop_effect_type TEXT DEFAULT 'None',
			duration_minutes INTEGER DEFAULT 0,
			redeem_method TEXT DEFAULT '',
			lucky_rewards TEXT DEFAULT '',
			level_required INTEGER DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id INTEGER NOT NULL,
			owner TEXT NOT NULL,
			quantity INTEGER DEFAULT 1,
			used_quantity INTEGER DEFAULT 0,
			status TEXT DEFAULT 'Unused',
			purchase_time DATETIME DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME,
			payload TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			FOREIGN KEY(item_id) REFERENCES shop_items(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_type ON tasks(type);`,
		`CREATE INDEX IF NOT EXISTS idx_achievements_owner ON achievements(owner);`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_owner ON inventory_items(owner);`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_owner_item ON inventory_items(owner, item_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
