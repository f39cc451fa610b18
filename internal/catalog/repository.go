package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/barpos/barpos/internal/platform/db"
	"github.com/barpos/barpos/internal/shared"
)

// Repository persists the catalog in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, price, currency, precision, owner_id, alcohol, deleted, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Price.Amount, &p.Price.Currency, &p.Price.Precision,
		&p.OwnerID, &p.Alcohol, &p.Deleted, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetProduct fetches one product.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND deleted = FALSE`, id)
	p, err := scanProduct(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, fmt.Errorf("catalog: get product: %w", err)
	}
	return p, nil
}

// ListProducts returns non-deleted products.
func (r *Repository) ListProducts(ctx context.Context, page shared.Pagination) ([]Product, int, error) {
	var count int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE deleted = FALSE`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("catalog: count products: %w", err)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE deleted = FALSE
		 ORDER BY name, id LIMIT $1 OFFSET $2`, page.Take, page.Skip)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("catalog: scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, count, rows.Err()
}

// CreateProduct inserts a product.
func (r *Repository) CreateProduct(ctx context.Context, input CreateProductInput) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, price, currency, precision, owner_id, alcohol, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW(), NOW())
		RETURNING `+productColumns,
		input.Name, input.Price.Amount, input.Price.Currency, input.Price.Precision,
		input.OwnerID, input.Alcohol)
	p, err := scanProduct(row)
	if err != nil {
		return Product{}, fmt.Errorf("catalog: create product: %w", err)
	}
	return p, nil
}

// UpdateProduct applies a partial update.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	current, err := r.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if input.Name != nil {
		current.Name = *input.Name
	}
	if input.Price != nil {
		current.Price = *input.Price
	}
	if input.Alcohol != nil {
		current.Alcohol = *input.Alcohol
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE products SET name = $2, price = $3, currency = $4, precision = $5,
			alcohol = $6, updated_at = NOW()
		WHERE id = $1 AND deleted = FALSE
		RETURNING `+productColumns,
		id, current.Name, current.Price.Amount, current.Price.Currency,
		current.Price.Precision, current.Alcohol)
	p, err := scanProduct(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, fmt.Errorf("catalog: update product: %w", err)
	}
	return p, nil
}

// DeleteProduct marks a product deleted.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE products SET deleted = TRUE, updated_at = NOW() WHERE id = $1 AND deleted = FALSE`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetContainer fetches one container with its product placements.
func (r *Repository) GetContainer(ctx context.Context, id int64) (Container, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, owner_id, public, created_at, updated_at
		FROM containers WHERE id = $1`, id)
	var c Container
	if err := row.Scan(&c.ID, &c.Name, &c.OwnerID, &c.Public, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return Container{}, shared.ErrNotFound
		}
		return Container{}, fmt.Errorf("catalog: get container: %w", err)
	}
	products, err := r.containerProducts(ctx, c.ID)
	if err != nil {
		return Container{}, err
	}
	c.Products = products
	return c, nil
}

func (r *Repository) containerProducts(ctx context.Context, containerID int64) ([]ContainerProduct, error) {
	// Featured first, then preferred, then position.
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, featured, preferred, position
		FROM container_products WHERE container_id = $1
		ORDER BY featured DESC, preferred DESC, position, product_id`, containerID)
	if err != nil {
		return nil, fmt.Errorf("catalog: container products: %w", err)
	}
	defer rows.Close()

	var out []ContainerProduct
	for rows.Next() {
		var cp ContainerProduct
		if err := rows.Scan(&cp.ProductID, &cp.Featured, &cp.Preferred, &cp.Position); err != nil {
			return nil, fmt.Errorf("catalog: scan container product: %w", err)
		}
		out = append(out, cp)
	}
	return out, rows.Err()
}

// ListContainers returns containers without their placements.
func (r *Repository) ListContainers(ctx context.Context, page shared.Pagination) ([]Container, int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM containers`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("catalog: count containers: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, owner_id, public, created_at, updated_at
		FROM containers ORDER BY name, id LIMIT $1 OFFSET $2`, page.Take, page.Skip)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list containers: %w", err)
	}
	defer rows.Close()

	var out []Container
	for rows.Next() {
		var c Container
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID, &c.Public, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("catalog: scan container: %w", err)
		}
		out = append(out, c)
	}
	return out, count, rows.Err()
}

// CreateContainer inserts a container and its placements atomically.
func (r *Repository) CreateContainer(ctx context.Context, input CreateContainerInput) (Container, error) {
	var c Container
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO containers (name, owner_id, public, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
			RETURNING id, name, owner_id, public, created_at, updated_at`,
			input.Name, input.OwnerID, input.Public).
			Scan(&c.ID, &c.Name, &c.OwnerID, &c.Public, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("catalog: create container: %w", err)
		}
		for _, cp := range input.Products {
			_, err := tx.Exec(ctx, `
				INSERT INTO container_products (container_id, product_id, featured, preferred, position)
				VALUES ($1, $2, $3, $4, $5)`,
				c.ID, cp.ProductID, cp.Featured, cp.Preferred, cp.Position)
			if err != nil {
				return fmt.Errorf("catalog: add container product: %w", err)
			}
			c.Products = append(c.Products, cp)
		}
		return nil
	})
	if err != nil {
		return Container{}, err
	}
	return c, nil
}

// GetPointOfSale fetches one point of sale.
func (r *Repository) GetPointOfSale(ctx context.Context, id int64) (PointOfSale, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, owner_id, use_authentication, created_at, updated_at
		FROM points_of_sale WHERE id = $1`, id)
	var pos PointOfSale
	if err := row.Scan(&pos.ID, &pos.Name, &pos.OwnerID, &pos.UseAuthentication,
		&pos.CreatedAt, &pos.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return PointOfSale{}, shared.ErrNotFound
		}
		return PointOfSale{}, fmt.Errorf("catalog: get point of sale: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT container_id FROM point_of_sale_containers
		WHERE point_of_sale_id = $1 ORDER BY position, container_id`, id)
	if err != nil {
		return PointOfSale{}, fmt.Errorf("catalog: point of sale containers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cid int64
		if err := rows.Scan(&cid); err != nil {
			return PointOfSale{}, fmt.Errorf("catalog: scan container id: %w", err)
		}
		pos.ContainerIDs = append(pos.ContainerIDs, cid)
	}
	return pos, rows.Err()
}

// ListPointsOfSale returns points of sale.
func (r *Repository) ListPointsOfSale(ctx context.Context, page shared.Pagination) ([]PointOfSale, int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM points_of_sale`).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("catalog: count points of sale: %w", err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, owner_id, use_authentication, created_at, updated_at
		FROM points_of_sale ORDER BY name, id LIMIT $1 OFFSET $2`, page.Take, page.Skip)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list points of sale: %w", err)
	}
	defer rows.Close()

	var out []PointOfSale
	for rows.Next() {
		var pos PointOfSale
		if err := rows.Scan(&pos.ID, &pos.Name, &pos.OwnerID, &pos.UseAuthentication,
			&pos.CreatedAt, &pos.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("catalog: scan point of sale: %w", err)
		}
		out = append(out, pos)
	}
	return out, count, rows.Err()
}

// CreatePointOfSale inserts a point of sale and its container links.
func (r *Repository) CreatePointOfSale(ctx context.Context, input CreatePointOfSaleInput) (PointOfSale, error) {
	var pos PointOfSale
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO points_of_sale (name, owner_id, use_authentication, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
			RETURNING id, name, owner_id, use_authentication, created_at, updated_at`,
			input.Name, input.OwnerID, input.UseAuthentication).
			Scan(&pos.ID, &pos.Name, &pos.OwnerID, &pos.UseAuthentication,
				&pos.CreatedAt, &pos.UpdatedAt)
		if err != nil {
			return fmt.Errorf("catalog: create point of sale: %w", err)
		}
		for i, cid := range input.ContainerIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO point_of_sale_containers (point_of_sale_id, container_id, position)
				VALUES ($1, $2, $3)`, pos.ID, cid, i)
			if err != nil {
				return fmt.Errorf("catalog: link container: %w", err)
			}
			pos.ContainerIDs = append(pos.ContainerIDs, cid)
		}
		return nil
	})
	if err != nil {
		return PointOfSale{}, err
	}
	return pos, nil
}
