package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	// Postgres driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/andymarkow/hostmart/internal/domain/deposits"
	"github.com/andymarkow/hostmart/internal/domain/ledger"
	"github.com/andymarkow/hostmart/internal/domain/orders"
	"github.com/andymarkow/hostmart/internal/domain/payment"
	"github.com/andymarkow/hostmart/internal/domain/users"
	"github.com/andymarkow/hostmart/internal/storage"
	"github.com/andymarkow/hostmart/internal/storage/dbmodels"
	"github.com/andymarkow/hostmart/internal/storage/pgstorage/migrations"
)

var _ storage.Storage = (*Storage)(nil)

const (
	queryLockAccount = `SELECT balance FROM accounts WHERE login = $1 FOR UPDATE`

	queryGetEntryByKey = `SELECT id, account_login, amount, cause, reference_id, balance, actor, created_at` +
		` FROM ledger_entries WHERE reference_id = $1 AND cause = $2`

	queryInsertEntry = `INSERT INTO ledger_entries` +
		` (id, account_login, amount, cause, reference_id, balance, actor, created_at)` +
		` VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	queryUpdateBalance = `UPDATE accounts SET balance = $1 WHERE login = $2`

	queryLockDeposit = `SELECT id, account_login, amount, payment_method, status, proof_reference,` +
		` admin_notes, processed_by, processed_at, created_at FROM deposits WHERE id = $1 FOR UPDATE`

	queryLockOrder = `SELECT id, account_login, store_item_id, amount, status, payment_method,` +
		` proof_reference, admin_notes, created_at, updated_at FROM orders WHERE id = $1 FOR UPDATE`
)

type Storage struct {
	db *sql.DB
}

type Config struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
}

type Option func(s *Config)

func WithMaxOpenConns(conns int) Option {
	return func(c *Config) {
		c.maxOpenConns = conns
	}
}

func WithMaxIdleConns(conns int) Option {
	return func(c *Config) {
		c.maxIdleConns = conns
	}
}

func WithConnMaxIdleTime(idleTime time.Duration) Option {
	return func(c *Config) {
		c.connMaxIdleTime = idleTime
	}
}

func WithConnMaxLifetime(lifetime time.Duration) Option {
	return func(c *Config) {
		c.connMaxLifetime = lifetime
	}
}

func NewStorage(connStr string, opts ...Option) (*Storage, error) {
	cfg := &Config{
		maxOpenConns:    10,
		maxIdleConns:    5,
		connMaxIdleTime: 180 * time.Second,
		connMaxLifetime: 3600 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetConnMaxIdleTime(cfg.connMaxIdleTime)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)

	return &Storage{
		db: db,
	}, nil
}

// NewStorageWithDB wraps an existing database handle. Used in tests.
func NewStorageWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Bootstrap(ctx context.Context) error {
	provider, err := goose.NewProvider(
		goose.DialectPostgres,
		s.db,
		migrations.Files,
	)
	if err != nil {
		return fmt.Errorf("goose.NewProvider: %w", err)
	}

	_, err = provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("provider.Up: %w", err)
	}

	return nil
}

func (s *Storage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("db.Close: %w", err)
	}

	return nil
}

// isRetryableError checks if error is retryable.
func isRetryableError(err error) bool {
	// Connection refused error
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		return true
	}

	return false
}

// WithRetry retries operations in case of retryable errors.
func WithRetry(operation func() error) error {
	// Retry count
	retryCount := 3

	// Initial retry wait time
	var retryWaitTime time.Duration

	// Define the interval between retries
	retryWaitInterval := 2

	var err error

	for i := 0; i < retryCount; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if isRetryableError(err) {
			retryWaitTime = time.Duration((i*retryWaitInterval + 1)) * time.Second // 1s, 3s, 5s, etc.

			time.Sleep(retryWaitTime)
		} else {
			return fmt.Errorf("%w", err)
		}
	}

	return fmt.Errorf("retry attempts exceeded: %w", err)
}

func (s *Storage) Ping(ctx context.Context) error {
	err := WithRetry(func() error {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("db.PingContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateUser(ctx context.Context, usr *users.User) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		createUsrQuery := `INSERT INTO users (login, password_hash, role) VALUES ($1, $2, $3)`

		if _, err := tx.ExecContext(ctx, createUsrQuery,
			usr.Login(), usr.PasswordHash(), usr.Role().String(),
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrUserAlreadyExists
			}

			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		createAccountQuery := `INSERT INTO accounts (login) VALUES ($1)`

		if _, err := tx.ExecContext(ctx, createAccountQuery, usr.Login()); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrAccountAlreadyExists
			}

			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetUser(ctx context.Context, login string) (*users.User, error) {
	dbUser := new(dbmodels.User)

	err := WithRetry(func() error {
		query := `SELECT login, password_hash, role FROM users WHERE login = $1`

		row := s.db.QueryRowContext(ctx, query, login)

		if err := row.Scan(&dbUser.Login, &dbUser.PasswordHash, &dbUser.Role); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrUserNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	user, err := users.NewUser(dbUser.Login, dbUser.PasswordHash, users.Role(dbUser.Role))
	if err != nil {
		return nil, fmt.Errorf("users.NewUser: %w", err)
	}

	return user, nil
}

func (s *Storage) GetAccountBalance(ctx context.Context, login string) (int64, error) {
	var balance int64

	err := WithRetry(func() error {
		query := `SELECT balance FROM accounts WHERE login = $1`

		row := s.db.QueryRowContext(ctx, query, login)

		if err := row.Scan(&balance); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrAccountNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

func (s *Storage) GetLedgerEntries(ctx context.Context, login string, limit int) ([]*ledger.Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	dbEntries := make([]*dbmodels.LedgerEntry, 0)

	err := WithRetry(func() error {
		query := `SELECT id, account_login, amount, cause, reference_id, balance, actor, created_at` +
			` FROM ledger_entries WHERE account_login = $1 ORDER BY seq DESC LIMIT $2`

		rows, err := s.db.QueryContext(ctx, query, login, limit)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dbEntry := new(dbmodels.LedgerEntry)

			if err := rows.Scan(
				&dbEntry.ID, &dbEntry.AccountLogin, &dbEntry.Amount, &dbEntry.Cause,
				&dbEntry.ReferenceID, &dbEntry.Balance, &dbEntry.Actor, &dbEntry.CreatedAt,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbEntries = append(dbEntries, dbEntry)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*ledger.Entry, 0, len(dbEntries))

	for _, dbEntry := range dbEntries {
		entry, err := ledger.NewEntry(
			dbEntry.ID, dbEntry.AccountLogin, dbEntry.Amount, ledger.Cause(dbEntry.Cause),
			dbEntry.ReferenceID, dbEntry.Balance, dbEntry.Actor, dbEntry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ledger.NewEntry: %w", err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// postEntryTx applies a ledger entry inside the given transaction: it locks
// the account row, checks the idempotency key under that lock, verifies the
// resulting balance stays non-negative, then writes the entry and the new
// balance. Returns the stored entry when the key was posted before.
func (s *Storage) postEntryTx(ctx context.Context, tx *sql.Tx, entry *ledger.Entry) (*ledger.Entry, error) {
	var balance int64

	row := tx.QueryRowContext(ctx, queryLockAccount, entry.AccountLogin())
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAccountNotFound
		}

		return nil, fmt.Errorf("tx.QueryRowContext: %w", err)
	}

	dbEntry := new(dbmodels.LedgerEntry)

	row = tx.QueryRowContext(ctx, queryGetEntryByKey, entry.ReferenceID(), entry.Cause().String())

	err := row.Scan(
		&dbEntry.ID, &dbEntry.AccountLogin, &dbEntry.Amount, &dbEntry.Cause,
		&dbEntry.ReferenceID, &dbEntry.Balance, &dbEntry.Actor, &dbEntry.CreatedAt,
	)
	if err == nil {
		existing, err := ledger.NewEntry(
			dbEntry.ID, dbEntry.AccountLogin, dbEntry.Amount, ledger.Cause(dbEntry.Cause),
			dbEntry.ReferenceID, dbEntry.Balance, dbEntry.Actor, dbEntry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ledger.NewEntry: %w", err)
		}

		return existing, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tx.QueryRowContext: %w", err)
	}

	newBalance := balance + entry.Amount()
	if newBalance < 0 {
		return nil, storage.ErrInsufficientFunds
	}

	entry.SetBalance(newBalance)

	if _, err := tx.ExecContext(ctx, queryInsertEntry,
		entry.ID(), entry.AccountLogin(), entry.Amount(), entry.Cause().String(),
		entry.ReferenceID(), entry.Balance(), entry.Actor(), entry.CreatedAt(),
	); err != nil {
		return nil, fmt.Errorf("tx.ExecContext: %w", err)
	}

	if _, err := tx.ExecContext(ctx, queryUpdateBalance, newBalance, entry.AccountLogin()); err != nil {
		return nil, fmt.Errorf("tx.ExecContext: %w", err)
	}

	return entry, nil
}

func (s *Storage) PostLedgerEntry(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, error) {
	var applied *ledger.Entry

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		applied, err = s.postEntryTx(ctx, tx, entry)
		if err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return applied, nil
}

func (s *Storage) CreateDeposit(ctx context.Context, dep *deposits.Deposit) error {
	err := WithRetry(func() error {
		query := `INSERT INTO deposits` +
			` (id, account_login, amount, payment_method, status, created_at)` +
			` VALUES ($1, $2, $3, $4, $5, $6)`

		if _, err := s.db.ExecContext(ctx, query,
			dep.ID(), dep.AccountLogin(), dep.Amount(),
			dep.PaymentMethod().String(), dep.Status().String(), dep.CreatedAt(),
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrDepositAlreadyExists
			}

			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func scanDeposit(row interface{ Scan(dest ...any) error }) (*deposits.Deposit, error) {
	dbDep := new(dbmodels.Deposit)

	if err := row.Scan(
		&dbDep.ID, &dbDep.AccountLogin, &dbDep.Amount, &dbDep.PaymentMethod, &dbDep.Status,
		&dbDep.ProofRef, &dbDep.AdminNotes, &dbDep.ProcessedBy, &dbDep.ProcessedAt, &dbDep.CreatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	method, err := payment.ParseMethod(dbDep.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("payment.ParseMethod: %w", err)
	}

	var processedAt time.Time
	if dbDep.ProcessedAt.Valid {
		processedAt = dbDep.ProcessedAt.Time
	}

	dep, err := deposits.NewDeposit(
		dbDep.ID, dbDep.AccountLogin, dbDep.Amount, method, deposits.Status(dbDep.Status),
		dbDep.ProofRef, dbDep.AdminNotes, dbDep.ProcessedBy, processedAt, dbDep.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("deposits.NewDeposit: %w", err)
	}

	return dep, nil
}

func (s *Storage) GetDeposit(ctx context.Context, depositID string) (*deposits.Deposit, error) {
	var dep *deposits.Deposit

	err := WithRetry(func() error {
		query := `SELECT id, account_login, amount, payment_method, status, proof_reference,` +
			` admin_notes, processed_by, processed_at, created_at FROM deposits WHERE id = $1`

		row := s.db.QueryRowContext(ctx, query, depositID)

		var err error

		dep, err = scanDeposit(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrDepositNotFound
			}

			return fmt.Errorf("scanDeposit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return dep, nil
}

func (s *Storage) getDeposits(ctx context.Context, query string, args ...any) ([]*deposits.Deposit, error) {
	deps := make([]*deposits.Deposit, 0)

	err := WithRetry(func() error {
		deps = deps[:0]

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			dep, err := scanDeposit(rows)
			if err != nil {
				return fmt.Errorf("scanDeposit: %w", err)
			}

			deps = append(deps, dep)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return deps, nil
}

func (s *Storage) GetDepositsByLogin(ctx context.Context, login string) ([]*deposits.Deposit, error) {
	query := `SELECT id, account_login, amount, payment_method, status, proof_reference,` +
		` admin_notes, processed_by, processed_at, created_at FROM deposits` +
		` WHERE account_login = $1 ORDER BY created_at DESC`

	return s.getDeposits(ctx, query, login)
}

func (s *Storage) GetDepositsByStatus(ctx context.Context, statuses ...deposits.Status) ([]*deposits.Deposit, error) {
	query := `SELECT id, account_login, amount, payment_method, status, proof_reference,` +
		` admin_notes, processed_by, processed_at, created_at FROM deposits`

	if len(statuses) == 0 {
		return s.getDeposits(ctx, query+` ORDER BY created_at DESC`)
	}

	return s.getDeposits(ctx, query+` WHERE status = ANY($1) ORDER BY created_at DESC`, pq.Array(statuses))
}

func (s *Storage) AttachDepositProof(ctx context.Context, depositID, proofRef string) (*deposits.Deposit, error) {
	var dep *deposits.Deposit

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		dep, err = scanDeposit(tx.QueryRowContext(ctx, queryLockDeposit, depositID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrDepositNotFound
			}

			return fmt.Errorf("scanDeposit: %w", err)
		}

		if err := dep.AttachProof(proofRef); err != nil {
			if errors.Is(err, deposits.ErrInvalidTransition) {
				return storage.ErrInvalidState
			}

			return fmt.Errorf("deposit.AttachProof: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE deposits SET status = $1, proof_reference = $2 WHERE id = $3`,
			dep.Status().String(), dep.ProofRef(), dep.ID(),
		); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return dep, nil
}

func (s *Storage) ApproveDeposit(ctx context.Context, depositID, adminID, notes string) (*deposits.Deposit, *ledger.Entry, error) {
	var (
		dep   *deposits.Deposit
		entry *ledger.Entry
	)

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		dep, err = scanDeposit(tx.QueryRowContext(ctx, queryLockDeposit, depositID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrDepositNotFound
			}

			return fmt.Errorf("scanDeposit: %w", err)
		}

		if dep.Status().Terminal() {
			return storage.ErrAlreadyProcessed
		}

		if !dep.Status().CanTransition(deposits.StatusApproved) {
			return storage.ErrInvalidState
		}

		newEntry, err := ledger.CreateEntry(
			dep.AccountLogin(), dep.Amount(), ledger.CauseDepositApproved, dep.ID(), adminID,
		)
		if err != nil {
			return fmt.Errorf("ledger.CreateEntry: %w", err)
		}

		// The credit must commit with the status change or not at all.
		entry, err = s.postEntryTx(ctx, tx, newEntry)
		if err != nil {
			return err
		}

		if err := dep.Approve(adminID, notes, time.Now().UTC()); err != nil {
			return fmt.Errorf("deposit.Approve: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE deposits SET status = $1, admin_notes = $2, processed_by = $3, processed_at = $4 WHERE id = $5`,
			dep.Status().String(), dep.AdminNotes(), dep.ProcessedBy(), dep.ProcessedAt(), dep.ID(),
		); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return dep, entry, nil
}

func (s *Storage) RejectDeposit(ctx context.Context, depositID, adminID, notes string) (*deposits.Deposit, error) {
	var dep *deposits.Deposit

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		dep, err = scanDeposit(tx.QueryRowContext(ctx, queryLockDeposit, depositID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrDepositNotFound
			}

			return fmt.Errorf("scanDeposit: %w", err)
		}

		if dep.Status().Terminal() {
			return storage.ErrAlreadyProcessed
		}

		if err := dep.Reject(adminID, notes, time.Now().UTC()); err != nil {
			return storage.ErrInvalidState
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE deposits SET status = $1, admin_notes = $2, processed_by = $3, processed_at = $4 WHERE id = $5`,
			dep.Status().String(), dep.AdminNotes(), dep.ProcessedBy(), dep.ProcessedAt(), dep.ID(),
		); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return dep, nil
}

func scanOrder(row interface{ Scan(dest ...any) error }) (*orders.Order, error) {
	dbOrd := new(dbmodels.Order)

	if err := row.Scan(
		&dbOrd.ID, &dbOrd.AccountLogin, &dbOrd.StoreItemID, &dbOrd.Amount, &dbOrd.Status,
		&dbOrd.PaymentMethod, &dbOrd.ProofRef, &dbOrd.AdminNotes, &dbOrd.CreatedAt, &dbOrd.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}

	method, err := payment.ParseMethod(dbOrd.PaymentMethod)
	if err != nil {
		return nil, fmt.Errorf("payment.ParseMethod: %w", err)
	}

	ord, err := orders.NewOrder(
		dbOrd.ID, dbOrd.AccountLogin, dbOrd.StoreItemID, dbOrd.Amount, orders.Status(dbOrd.Status),
		method, dbOrd.ProofRef, dbOrd.AdminNotes, dbOrd.CreatedAt, dbOrd.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("orders.NewOrder: %w", err)
	}

	return ord, nil
}

func insertOrderTx(ctx context.Context, tx *sql.Tx, ord *orders.Order) error {
	query := `INSERT INTO orders` +
		` (id, account_login, store_item_id, amount, status, payment_method, created_at, updated_at)` +
		` VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := tx.ExecContext(ctx, query,
		ord.ID(), ord.AccountLogin(), ord.StoreItemID(), ord.Amount(),
		ord.Status().String(), ord.PaymentMethod().String(), ord.CreatedAt(), ord.UpdatedAt(),
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
			return storage.ErrOrderAlreadyExists
		}

		return fmt.Errorf("tx.ExecContext: %w", err)
	}

	return nil
}

func (s *Storage) CreateOrder(ctx context.Context, ord *orders.Order) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if err := insertOrderTx(ctx, tx, ord); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateOrderWithDebit(ctx context.Context, ord *orders.Order) (*ledger.Entry, error) {
	var entry *ledger.Entry

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		newEntry, err := ledger.CreateEntry(
			ord.AccountLogin(), -ord.Amount(), ledger.CauseOrderDebit, ord.ID(), ledger.ActorSystem,
		)
		if err != nil {
			return fmt.Errorf("ledger.CreateEntry: %w", err)
		}

		// Debit first: an insufficient-funds failure aborts the whole
		// transaction and no order row is written.
		entry, err = s.postEntryTx(ctx, tx, newEntry)
		if err != nil {
			return err
		}

		if ord.Status() == orders.StatusPending {
			if err := ord.Complete(""); err != nil {
				return fmt.Errorf("order.Complete: %w", err)
			}
		}

		if err := insertOrderTx(ctx, tx, ord); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *Storage) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	var ord *orders.Order

	err := WithRetry(func() error {
		query := `SELECT id, account_login, store_item_id, amount, status, payment_method,` +
			` proof_reference, admin_notes, created_at, updated_at FROM orders WHERE id = $1`

		var err error

		ord, err = scanOrder(s.db.QueryRowContext(ctx, query, orderID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrOrderNotFound
			}

			return fmt.Errorf("scanOrder: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ord, nil
}

func (s *Storage) getOrders(ctx context.Context, query string, args ...any) ([]*orders.Order, error) {
	ords := make([]*orders.Order, 0)

	err := WithRetry(func() error {
		ords = ords[:0]

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			ord, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("scanOrder: %w", err)
			}

			ords = append(ords, ord)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows.Err: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ords, nil
}

func (s *Storage) GetOrdersByLogin(ctx context.Context, login string) ([]*orders.Order, error) {
	query := `SELECT id, account_login, store_item_id, amount, status, payment_method,` +
		` proof_reference, admin_notes, created_at, updated_at FROM orders` +
		` WHERE account_login = $1 ORDER BY created_at DESC`

	return s.getOrders(ctx, query, login)
}

func (s *Storage) GetOrdersByStatus(ctx context.Context, statuses ...orders.Status) ([]*orders.Order, error) {
	query := `SELECT id, account_login, store_item_id, amount, status, payment_method,` +
		` proof_reference, admin_notes, created_at, updated_at FROM orders`

	if len(statuses) == 0 {
		return s.getOrders(ctx, query+` ORDER BY created_at DESC`)
	}

	return s.getOrders(ctx, query+` WHERE status = ANY($1) ORDER BY created_at DESC`, pq.Array(statuses))
}

func (s *Storage) AttachOrderProof(ctx context.Context, orderID, proofRef string) (*orders.Order, error) {
	var ord *orders.Order

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		ord, err = scanOrder(tx.QueryRowContext(ctx, queryLockOrder, orderID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrOrderNotFound
			}

			return fmt.Errorf("scanOrder: %w", err)
		}

		if err := ord.AttachProof(proofRef); err != nil {
			if errors.Is(err, orders.ErrInvalidTransition) {
				return storage.ErrInvalidState
			}

			return fmt.Errorf("order.AttachProof: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = $1, proof_reference = $2, updated_at = $3 WHERE id = $4`,
			ord.Status().String(), ord.ProofRef(), ord.UpdatedAt(), ord.ID(),
		); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ord, nil
}

func (s *Storage) updateOrderStatusTx(ctx context.Context, tx *sql.Tx, ord *orders.Order) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, admin_notes = $2, updated_at = $3 WHERE id = $4`,
		ord.Status().String(), ord.AdminNotes(), ord.UpdatedAt(), ord.ID(),
	); err != nil {
		return fmt.Errorf("tx.ExecContext: %w", err)
	}

	return nil
}

func (s *Storage) CompleteOrder(ctx context.Context, orderID, notes string) (*orders.Order, error) {
	var ord *orders.Order

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		ord, err = scanOrder(tx.QueryRowContext(ctx, queryLockOrder, orderID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrOrderNotFound
			}

			return fmt.Errorf("scanOrder: %w", err)
		}

		if ord.Status().Terminal() {
			return storage.ErrAlreadyProcessed
		}

		if ord.Status() != orders.StatusValidating {
			return storage.ErrInvalidState
		}

		if err := ord.Complete(notes); err != nil {
			return storage.ErrInvalidState
		}

		if err := s.updateOrderStatusTx(ctx, tx, ord); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ord, nil
}

func (s *Storage) CancelOrder(ctx context.Context, orderID, notes string) (*orders.Order, error) {
	var ord *orders.Order

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		ord, err = scanOrder(tx.QueryRowContext(ctx, queryLockOrder, orderID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrOrderNotFound
			}

			return fmt.Errorf("scanOrder: %w", err)
		}

		if ord.Status() == orders.StatusCancelled || ord.Status() == orders.StatusRefunded {
			return storage.ErrAlreadyProcessed
		}

		if err := ord.Cancel(notes); err != nil {
			return storage.ErrInvalidState
		}

		if err := s.updateOrderStatusTx(ctx, tx, ord); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ord, nil
}

func (s *Storage) RefundOrder(ctx context.Context, orderID, actor, notes string) (*orders.Order, *ledger.Entry, error) {
	var (
		ord   *orders.Order
		entry *ledger.Entry
	)

	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		ord, err = scanOrder(tx.QueryRowContext(ctx, queryLockOrder, orderID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrOrderNotFound
			}

			return fmt.Errorf("scanOrder: %w", err)
		}

		if ord.Status() == orders.StatusCancelled || ord.Status() == orders.StatusRefunded {
			return storage.ErrAlreadyProcessed
		}

		if ord.Status() != orders.StatusCompleted || ord.PaymentMethod().ProofBased() {
			return storage.ErrInvalidState
		}

		newEntry, err := ledger.CreateEntry(
			ord.AccountLogin(), ord.Amount(), ledger.CauseOrderRefund, ord.ID(), actor,
		)
		if err != nil {
			return fmt.Errorf("ledger.CreateEntry: %w", err)
		}

		entry, err = s.postEntryTx(ctx, tx, newEntry)
		if err != nil {
			return err
		}

		if err := ord.Refund(notes); err != nil {
			return fmt.Errorf("order.Refund: %w", err)
		}

		if err := s.updateOrderStatusTx(ctx, tx, ord); err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return ord, entry, nil
}
