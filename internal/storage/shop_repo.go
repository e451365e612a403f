package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type ShopRepo struct {
	store *Store
}

func NewShopRepo(store *Store) *ShopRepo {
	return &ShopRepo{store: store}
}

const shopItemColumns = `id, name, description, item_type, price_coins, purchase_limit,
	available, prop_effect_type, duration_minutes, redeem_method, lucky_rewards, level_required`

func (r *ShopRepo) Insert(ctx context.Context, it ShopItem) (int64, error) {
	res, err := r.store.ExecContext(ctx, `
		INSERT INTO shop_items (
			name, description, item_type, price_coins, purchase_limit, available,
			prop_effect_type, duration_minutes, redeem_method, lucky_rewards, level_required
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, it.Name, it.Description, it.ItemType, it.PriceCoins, it.PurchaseLimit, boolToInt(it.Available),
		it.PropEffectType, it.DurationMinutes, it.RedeemMethod, it.LuckyRewards, it.LevelRequired)
	if err != nil {
		return 0, fmt.Errorf("shop item insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("shop item last insert id: %w", err)
	}
	return id, nil
}

func (r *ShopRepo) Get(ctx context.Context, id int64) (*ShopItem, error) {
	row := r.store.QueryRowContext(ctx, `SELECT `+shopItemColumns+` FROM shop_items WHERE id = ?`, id)
	return scanShopItemRow(row)
}

func (r *ShopRepo) ListAll(ctx context.Context) ([]ShopItem, error) {
	rows, err := r.store.QueryContext(ctx, `SELECT `+shopItemColumns+` FROM shop_items ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("shop item list: %w", err)
	}
	defer rows.Close()

	var out []ShopItem
	for rows.Next() {
		it, err := scanShopItemRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shop item rows: %w", err)
	}
	return out, nil
}

func (r *ShopRepo) Update(ctx context.Context, it *ShopItem) (bool, error) {
	res, err := r.store.ExecContext(ctx, `
		UPDATE shop_items
		SET name = ?, description = ?, item_type = ?, price_coins = ?, purchase_limit = ?,
			available = ?, prop_effect_type = ?, duration_minutes = ?, redeem_method = ?,
			lucky_rewards = ?, level_required = ?
		WHERE id = ?
	`, it.Name, it.Description, it.ItemType, it.PriceCoins, it.PurchaseLimit, boolToInt(it.Available),
		it.PropEffectType, it.DurationMinutes, it.RedeemMethod, it.LuckyRewards, it.LevelRequired, it.ID)
	if err != nil {
		return false, fmt.Errorf("shop item update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("shop item update rows: %w", err)
	}
	return n > 0, nil
}

func (r *ShopRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.store.ExecContext(ctx, `DELETE FROM shop_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("shop item delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("shop item delete rows: %w", err)
	}
	return n > 0, nil
}

func scanShopItemRow(row scanner) (*ShopItem, error) {
	var (
		it        ShopItem
		available int
	)
	if err := row.Scan(
		&it.ID, &it.Name, &it.Description, &it.ItemType, &it.PriceCoins, &it.PurchaseLimit,
		&available, &it.PropEffectType, &it.DurationMinutes, &it.RedeemMethod,
		&it.LuckyRewards, &it.LevelRequired,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("shop item scan: %w", err)
	}
	it.Available = available != 0
	return &it, nil
}
