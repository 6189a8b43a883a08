package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_giftpack/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Repository struct {
	db     *sql.DB
	driver string
}

// NewRepository opens the catalog database. dsn is a file path (or ":memory:")
// for sqlite and a connection string for postgres.
func NewRepository(driver, dsn string) (*Repository, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported catalog driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db, driver: driver}, nil
}

func (r *Repository) RunMigrations() error {
	var (
		driver database.Driver
		err    error
	)
	switch r.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(r.db, &postgres.Config{})
	default:
		driver, err = sqlite.WithInstance(r.db, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+r.driver)
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, r.driver, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const productColumns = `id, reference, name, description, image_url, type, category, itemgroup,
		price, status, discount, color, personalizable, quantity, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (domain.Product, error) {
	var (
		p              domain.Product
		personalizable int
	)
	err := row.Scan(
		&p.ID,
		&p.Reference,
		&p.Name,
		&p.Description,
		&p.Image,
		&p.Type,
		&p.Category,
		&p.ItemGroup,
		&p.Price,
		&p.Status,
		&p.Discount,
		&p.Color,
		&personalizable,
		&p.Quantity,
		&p.CreatedAt,
	)
	p.Personalizable = personalizable != 0
	return p, err
}

// Page is one page of the product listing.
type Page struct {
	Products   []domain.Product `json:"products"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

// ListProducts returns products ordered by id. Page defaults to 1 and limit to 10.
func (r *Repository) ListProducts(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products ORDER BY id LIMIT $1 OFFSET $2`
	products, err := r.queryProducts(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	return &Page{
		Products:   products,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (r *Repository) AllProducts(ctx context.Context) ([]domain.Product, error) {
	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	products, err := r.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrProductNotFound
	}
	return &products[0], nil
}

func (r *Repository) queryProducts(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	if err := r.attachSizes(ctx, products); err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Quantity = ComputeQuantity(products[i])
	}
	return products, nil
}

// attachSizes runs after the product rows are closed: the sqlite pool holds a
// single connection.
func (r *Repository) attachSizes(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	index := make(map[int64]int, len(products))
	placeholders := make([]string, len(products))
	args := make([]any, len(products))
	for i, p := range products {
		index[p.ID] = i
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = p.ID
	}

	query := `SELECT product_id, size, quantity FROM product_sizes WHERE product_id IN (` +
		strings.Join(placeholders, ", ") + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to query sizes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			size string
			qty  int
		)
		if err := rows.Scan(&id, &size, &qty); err != nil {
			return fmt.Errorf("failed to scan size: %w", err)
		}
		p := &products[index[id]]
		if p.Sizes == nil {
			p.Sizes = make(map[string]int)
		}
		p.Sizes[size] = qty
	}
	return rows.Err()
}

// DecrementStock removes sold units. Sized products are decremented on the size
// row, everything else on the product itself.
func (r *Repository) DecrementStock(ctx context.Context, productID int64, size string, qty int) error {
	size = strings.ToLower(strings.TrimSpace(size))

	var (
		res sql.Result
		err error
	)
	if size != "" && size != "-" {
		res, err = r.db.ExecContext(ctx,
			`UPDATE product_sizes SET quantity = quantity - $1 WHERE product_id = $2 AND size = $3 AND quantity >= $1`,
			qty, productID, size)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE products SET quantity = quantity - $1 WHERE id = $2 AND quantity >= $1`,
			qty, productID)
	}
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("product %d size %q: %w", productID, size, ErrInsufficientStock)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
