package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/uniform-inventory/internal/core/domain"
	"github.com/rl1809/uniform-inventory/internal/port"
)

const (
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// OpenMySQL opens the pool and checks the server is reachable.
func OpenMySQL(ctx context.Context, dsn string, maxOpenConns int) (*sql.DB, error) {
	dsn, err := withParseTime(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns / 2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// withParseTime turns on parseTime, which the created_at scans rely on.
func withParseTime(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// WithinTx runs fn under READ COMMITTED. Units are read with FOR UPDATE, so
// concurrent writers to the same unit queue on the row lock instead of
// checking stock against a stale value.
func (m *MySQLAdapter) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) LockUnit(ctx context.Context, unitID int64) (*domain.UniformUnit, error) {
	var u domain.UniformUnit
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, garment, size, quantity, price, version
		FROM uniforms WHERE id = ? FOR UPDATE`, unitID,
	).Scan(&u.ID, &u.Garment, &u.Size, &u.Quantity, &u.Price, &u.Version)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("unit %d: %w", unitID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, wrapDBError("lock unit", err)
	}
	return &u, nil
}

func (t *mysqlTx) ApplyDelta(ctx context.Context, unitID int64, delta int) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE uniforms
		SET quantity = quantity + ?, version = version + 1, updated_at = NOW()
		WHERE id = ? AND quantity + ? >= 0`,
		delta, unitID, delta,
	)
	if err != nil {
		return wrapDBError("update unit quantity", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("unit %d: %w", unitID, domain.ErrInsufficientStock)
	}
	return nil
}

func (t *mysqlTx) InsertMovement(ctx context.Context, mv domain.Movement) (int64, error) {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO movements (actor_id, kind, garment, size, quantity, resulting_stock, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		mv.ActorID, mv.Kind, mv.Garment, mv.Size, mv.Quantity, mv.ResultingStock, mv.CreatedAt,
	)
	if err != nil {
		return 0, wrapDBError("insert movement", err)
	}
	return result.LastInsertId()
}

func (t *mysqlTx) InsertSale(ctx context.Context, s domain.Sale) (int64, error) {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO sales (customer_name, total, actor_id, created_at)
		VALUES (?, ?, ?, ?)`,
		s.CustomerName, s.Total, s.ActorID, s.CreatedAt,
	)
	if err != nil {
		return 0, wrapDBError("insert sale", err)
	}
	return result.LastInsertId()
}

func (t *mysqlTx) InsertSaleLines(ctx context.Context, saleID int64, lines []domain.SaleLine) error {
	for _, l := range lines {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, unit_id, quantity, unit_price)
			VALUES (?, ?, ?, ?)`,
			saleID, l.UnitID, l.Quantity, l.UnitPrice,
		)
		if err != nil {
			return wrapDBError("insert sale line", err)
		}
	}
	return nil
}

func (t *mysqlTx) EnqueueEvent(ctx context.Context, ev domain.Event) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO outbox_events (event_id, event_type, event_version, aggregate_id, payload, occurred_at, status)
		VALUES (?, ?, ?, ?, ?, ?, 'PENDING')`,
		ev.EventID, ev.EventType, ev.EventVersion, ev.AggregateID, []byte(ev.Payload), ev.OccurredAt,
	)
	if err != nil {
		return wrapDBError("insert outbox event", err)
	}
	return nil
}

func (m *MySQLAdapter) ListUniforms(ctx context.Context) ([]domain.UniformUnit, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, garment, size, quantity, price, version
		FROM uniforms ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query uniforms: %w", err)
	}
	defer rows.Close()

	var out []domain.UniformUnit
	for rows.Next() {
		var u domain.UniformUnit
		if err := rows.Scan(&u.ID, &u.Garment, &u.Size, &u.Quantity, &u.Price, &u.Version); err != nil {
			return nil, fmt.Errorf("scan uniform: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) CreateUniform(ctx context.Context, u domain.UniformUnit) (int64, error) {
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO uniforms (garment, size, quantity, price)
		VALUES (?, ?, ?, ?)`,
		u.Garment, u.Size, u.Quantity, u.Price,
	)
	if err != nil {
		return 0, fmt.Errorf("insert uniform: %w", err)
	}
	return result.LastInsertId()
}

func (m *MySQLAdapter) ListMovements(ctx context.Context) ([]domain.Movement, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT m.id, m.actor_id, COALESCE(u.username, ''), m.kind, m.garment, m.size,
		       m.quantity, m.resulting_stock, m.created_at
		FROM movements m
		LEFT JOIN users u ON u.id = m.actor_id
		ORDER BY m.created_at DESC, m.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	var out []domain.Movement
	for rows.Next() {
		var mv domain.Movement
		if err := rows.Scan(&mv.ID, &mv.ActorID, &mv.ActorName, &mv.Kind, &mv.Garment, &mv.Size,
			&mv.Quantity, &mv.ResultingStock, &mv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) ListSales(ctx context.Context) ([]domain.SaleSummary, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT s.id, s.created_at, s.customer_name, s.total, COALESCE(u.username, ''),
		       GROUP_CONCAT(CONCAT(un.garment, ' (', un.size, ')') ORDER BY sl.id SEPARATOR ', ')
		FROM sales s
		LEFT JOIN users u ON u.id = s.actor_id
		JOIN sale_lines sl ON sl.sale_id = s.id
		JOIN uniforms un ON un.id = sl.unit_id
		GROUP BY s.id, s.created_at, s.customer_name, s.total, u.username
		ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var out []domain.SaleSummary
	for rows.Next() {
		var s domain.SaleSummary
		if err := rows.Scan(&s.ID, &s.CreatedAt, &s.CustomerName, &s.Total, &s.ActorName, &s.Products); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) StockValuation(ctx context.Context) ([]domain.StockValue, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT garment, size, quantity, quantity * price
		FROM uniforms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query stock value: %w", err)
	}
	defer rows.Close()

	var out []domain.StockValue
	for rows.Next() {
		var v domain.StockValue
		if err := rows.Scan(&v.Garment, &v.Size, &v.Quantity, &v.TotalValue); err != nil {
			return nil, fmt.Errorf("scan stock value: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := m.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role
		FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (m *MySQLAdapter) PendingEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, event_id, event_type, event_version, aggregate_id, payload, occurred_at
		FROM outbox_events
		WHERE status = 'PENDING'
		ORDER BY id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var ev domain.Event
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.EventID, &ev.EventType, &ev.EventVersion, &ev.AggregateID,
			&payload, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Payload = payload
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (m *MySQLAdapter) MarkEventsSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	_, err := m.db.ExecContext(ctx, `
		UPDATE outbox_events SET status = 'SENT', sent_at = NOW()
		WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("mark events sent: %w", err)
	}
	return nil
}

// wrapDBError tags lock conflicts as transaction failures so callers can tell
// them from plain statement errors; neither is retried here.
func wrapDBError(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && (myErr.Number == errDeadlock || myErr.Number == errLockWaitTimeout) {
		return fmt.Errorf("%s: lock conflict (%d): %w", op, myErr.Number, domain.ErrTransactionFailure)
	}
	return fmt.Errorf("%s: %w", op, err)
}
