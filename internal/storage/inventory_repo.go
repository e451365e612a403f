package storage

import (
	"context"
	"database/sql"
	"fmt"
)

type InventoryRepo struct {
	store *Store
}

func NewInventoryRepo(store *Store) *InventoryRepo {
	return &InventoryRepo{store: store}
}

const inventoryColumns = `id, item_id, owner, quantity, used_quantity, status,
	purchase_time, expires_at, payload, notes`

func (r *InventoryRepo) Insert(ctx context.Context, it InventoryItem) (int64, error) {
	res, err := r.store.ExecContext(ctx, `
		INSERT INTO inventory_items (
			item_id, owner, quantity, used_quantity, status,
			purchase_time, expires_at, payload, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, it.ItemID, it.Owner, it.Quantity, it.UsedQuantity, it.Status,
		it.PurchaseTime, it.ExpiresAt, it.Payload, it.Notes)
	if err != nil {
		return 0, fmt.Errorf("inventory insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("inventory last insert id: %w", err)
	}
	return id, nil
}

func (r *InventoryRepo) Get(ctx context.Context, id int64) (*InventoryItem, error) {
	row := r.store.QueryRowContext(ctx, `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = ?`, id)
	return scanInventoryRow(row)
}

func (r *InventoryRepo) ListByOwner(ctx context.Context, owner string) ([]InventoryItem, error) {
	rows, err := r.store.QueryContext(ctx,
		`SELECT `+inventoryColumns+` FROM inventory_items WHERE owner = ? ORDER BY id ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("inventory list: %w", err)
	}
	defer rows.Close()
	return collectInventory(rows)
}

func (r *InventoryRepo) ListAll(ctx context.Context) ([]InventoryItem, error) {
	rows, err := r.store.QueryContext(ctx, `SELECT `+inventoryColumns+` FROM inventory_items ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("inventory list all: %w", err)
	}
	defer rows.Close()
	return collectInventory(rows)
}

func (r *InventoryRepo) Update(ctx context.Context, it *InventoryItem) (bool, error) {
	res, err := r.store.ExecContext(ctx, `
		UPDATE inventory_items
		SET item_id = ?, owner = ?, quantity = ?, used_quantity = ?, status = ?,
			purchase_time = ?, expires_at = ?, payload = ?, notes = ?
		WHERE id = ?
	`, it.ItemID, it.Owner, it.Quantity, it.UsedQuantity, it.Status,
		it.PurchaseTime, it.ExpiresAt, it.Payload, it.Notes, it.ID)
	if err != nil {
		return false, fmt.Errorf("inventory update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inventory update rows: %w", err)
	}
	return n > 0, nil
}

func (r *InventoryRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.store.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("inventory delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inventory delete rows: %w", err)
	}
	return n > 0, nil
}

// CountByOwnerAndItem backs the shop's purchase-limit check.
func (r *InventoryRepo) CountByOwnerAndItem(ctx context.Context, owner string, itemID int64) (int, error) {
	row := r.store.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM inventory_items
		WHERE owner = ? AND item_id = ?
	`, owner, itemID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("inventory count: %w", err)
	}
	return n, nil
}

func scanInventoryRow(row scanner) (*InventoryItem, error) {
	var (
		it        InventoryItem
		expiresAt sql.NullTime
	)
	if err := row.Scan(
		&it.ID, &it.ItemID, &it.Owner, &it.Quantity, &it.UsedQuantity, &it.Status,
		&it.PurchaseTime, &expiresAt, &it.Payload, &it.Notes,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("inventory scan: %w", err)
	}
	if expiresAt.Valid {
		v := expiresAt.Time
		it.ExpiresAt = &v
	}
	return &it, nil
}

func collectInventory(rows *sql.Rows) ([]InventoryItem, error) {
	var out []InventoryItem
	for rows.Next() {
		it, err := scanInventoryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory rows: %w", err)
	}
	return out, nil
}
