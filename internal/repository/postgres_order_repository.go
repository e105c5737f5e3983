package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"

	"github.com/Lixing-Zhang/furniture-store/backend/internal/lifecycle"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/models"
	"github.com/Lixing-Zhang/furniture-store/backend/internal/money"
)

// Credentials configures the PostgreSQL order store
type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresOrderRepository stores orders in PostgreSQL. Amounts are kept
// as integer cents.
type PostgresOrderRepository struct {
	db *sql.DB
}

const orderColumns = `id, checkout_id, product_id, product_name, vendor_id, customer_id, quantity,
	unit_price_cents, shipping_cents, discount_cents, total_cents, coupon_code,
	order_status, payment_status, created_at, updated_at`

// NewPostgresOrderRepository opens and pings the database
func NewPostgresOrderRepository(ctx context.Context, cred *Credentials) (*PostgresOrderRepository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &PostgresOrderRepository{db: db}, nil
}

// RunMigrations applies the schema migrations found in MigrationsDirPath
func (r *PostgresOrderRepository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// CreateOrders inserts all orders in one transaction
func (r *PostgresOrderRepository) CreateOrders(ctx context.Context, orders []*models.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (id, checkout_id, product_id, product_name, vendor_id, customer_id, quantity,
	          unit_price_cents, shipping_cents, discount_cents, total_cents, coupon_code, order_status, payment_status,
	          created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
	          RETURNING created_at, updated_at`

	for _, o := range orders {
		err := tx.QueryRowContext(ctx, query,
			o.ID,
			o.CheckoutID,
			o.ProductID,
			o.ProductName,
			o.VendorID,
			o.CustomerID,
			o.Quantity,
			money.ToMinor(o.UnitPriceMajor),
			money.ToMinor(o.ShippingFeeMajor),
			money.ToMinor(o.DiscountAmountMajor),
			money.ToMinor(o.TotalMajor),
			sql.NullString{String: o.CouponCode, Valid: o.CouponCode != ""},
			o.OrderStatus,
			o.PaymentStatus,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return ErrDuplicateOrder
			}
			return fmt.Errorf("insert order: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit orders: %w", err)
	}
	return nil
}

// GetByID loads one order
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return o, nil
}

// ListByCustomer returns a customer's orders, newest first
func (r *PostgresOrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC, id`
	return r.list(ctx, query, customerID)
}

// ListByVendor returns a vendor's orders, newest first
func (r *PostgresOrderRepository) ListByVendor(ctx context.Context, vendorID string) ([]*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE vendor_id = $1 ORDER BY created_at DESC, id`
	return r.list(ctx, query, vendorID)
}

func (r *PostgresOrderRepository) list(ctx context.Context, query string, arg string) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

// UpdateStatus is a conditional update on the current status. When no
// row matches, a follow-up read tells a missing order from a conflict.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, from, to models.OrderStatus) (*models.Order, error) {
	query := `UPDATE orders SET order_status = $3, updated_at = NOW()
	          WHERE id = $1 AND order_status = $2
	          RETURNING ` + orderColumns

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id, from, to))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrStatusConflict
}

// Ping checks the database connection
func (r *PostgresOrderRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database pool
func (r *PostgresOrderRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o                                         models.Order
		unitCents, shipCents, discCents, totCents int64
		coupon                                    sql.NullString
	)

	err := row.Scan(
		&o.ID,
		&o.CheckoutID,
		&o.ProductID,
		&o.ProductName,
		&o.VendorID,
		&o.CustomerID,
		&o.Quantity,
		&unitCents,
		&shipCents,
		&discCents,
		&totCents,
		&coupon,
		&o.OrderStatus,
		&o.PaymentStatus,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if !lifecycle.Valid(o.OrderStatus) {
		return nil, fmt.Errorf("order %s has unknown status %q", o.ID, o.OrderStatus)
	}

	o.UnitPriceMajor = money.ToMajor(unitCents)
	o.ShippingFeeMajor = money.ToMajor(shipCents)
	o.DiscountAmountMajor = money.ToMajor(discCents)
	o.TotalMajor = money.ToMajor(totCents)
	o.CouponCode = coupon.String
	return &o, nil
}
