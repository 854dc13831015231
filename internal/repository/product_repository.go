package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/product-api/internal/database"
	"github.com/iliyamo/product-api/internal/model"
)

const productColumns = "id, name, description, price, created_at"

// ProductRepo encapsulates all database queries related to products.
type ProductRepo struct {
	db      database.DBTX
	dialect database.Dialect
}

func NewProductRepo(db database.DBTX, d database.Dialect) *ProductRepo {
	return &ProductRepo{db: db, dialect: d}
}

// Create inserts p and fills in its ID.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	id, err := insertReturningID(ctx, r.db, r.dialect,
		"INSERT INTO products (name, description, price, created_at) VALUES (?, ?, ?, ?)",
		p.Name, p.Description, p.Price, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.ID = id
	return nil
}

// GetByID fetches a product by id. It returns ErrNotFound if no row matches.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var p model.Product
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT "+productColumns+" FROM products WHERE id = ?"), id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &p, nil
}

// List returns all products ordered by id.
func (r *ProductRepo) List(ctx context.Context) ([]*model.Product, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []*model.Product{}
	for rows.Next() {
		p := new(model.Product)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Update writes name, description and price of p.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		r.dialect.Rebind("UPDATE products SET name = ?, description = ?, price = ? WHERE id = ?"),
		p.Name, p.Description, p.Price, p.ID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return expectAffected(res)
}

// Delete removes the product permanently.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind("DELETE FROM products WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return expectAffected(res)
}
