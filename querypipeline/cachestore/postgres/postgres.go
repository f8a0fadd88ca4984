// Package postgres provides a cachestore.Store on PostgreSQL.
//
// Entries live in one table keyed by the cache key. SQL is built with goqu and executed through
// an adapter for pgxpool.Pool, sql.DB, or sqlx.DB. Expired rows are invisible to Load and can be
// purged with DeleteExpired.
//
// Usage:
//
//	pool, _ := pgxpool.New(ctx, dsn)
//	store, _ := postgres.NewStoreFromPGXPool(pool, postgres.WithTableName("query_cache"))
//	_ = store.EnsureSchema(ctx)
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore"
	"github.com/AntonStoeckl/dynamic-query-pipeline-go/querypipeline/cachestore/postgres/internal/adapters"
)

const (
	defaultTableName          = "query_result_cache"
	dialectPostgres           = "postgres"
	colKey                    = "cache_key"
	colQueryType              = "query_type"
	colData                   = "data"
	colCreatedAt              = "created_at"
	colExpiresAt              = "expires_at"
	castJsonb                 = "?::jsonb"
	logMsgBuildQueryFailed    = "failed to build cache query"
	logMsgDBQueryFailed       = "cache query execution failed"
	logMsgDBExecFailed        = "cache statement execution failed"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgSQLExecuted         = "executed sql for: "
	logMsgExpiredEntriesPurge = "expired cache entries purged"
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrDurationMS         = "duration_ms"
	logAttrRowsAffected       = "rows_affected"
	logActionLoad             = "load"
	logActionSave             = "save"
	logActionDelete           = "delete"
	logActionPurge            = "purge"
)

// ErrEmptyTableName is returned when an empty table name is provided to WithTableName.
var ErrEmptyTableName = errors.New("cache table name must not be empty")

// Logger interface for SQL query logging and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Store is a cachestore.Store on a PostgreSQL table.
type Store struct {
	db        adapters.DBAdapter
	tableName string
	logger    Logger
}

// Option defines a functional option for configuring Store.
type Option func(*Store) error

// WithTableName sets the table name for the Store.
func WithTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the Store.
// Debug level: SQL statements with execution timing. Info level: purge counts.
// Warn level: cleanup failures. Error level: failed statements.
func WithLogger(logger Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// NewStoreFromPGXPool creates a Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, cachestore.ErrNilConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewStoreFromSQLDB creates a Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, cachestore.ErrNilConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, cachestore.ErrNilConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (*Store, error) {
	s := &Store{
		db:        db,
		tableName: defaultTableName,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// EnsureSchema creates the cache table and its expiry index if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.exec(ctx, s.schemaSQL(), "schema"); err != nil {
		return err
	}

	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Save upserts entry.
func (s *Store) Save(ctx context.Context, entry cachestore.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	sqlQuery, err := s.buildUpsertQuery(entry)
	if err != nil {
		s.logError(logMsgBuildQueryFailed, err)
		return errors.Join(cachestore.ErrSavingEntryFailed, err)
	}

	if _, err = s.exec(ctx, sqlQuery, logActionSave); err != nil {
		return errors.Join(cachestore.ErrSavingEntryFailed, err)
	}

	return nil
}

// Load returns the unexpired entry for key, or nil on a miss.
func (s *Store) Load(ctx context.Context, key string) (*cachestore.Entry, error) {
	if key == "" {
		return nil, cachestore.ErrEmptyKey
	}

	sqlQuery, err := s.buildSelectQuery(key)
	if err != nil {
		s.logError(logMsgBuildQueryFailed, err)
		return nil, errors.Join(cachestore.ErrLoadingEntryFailed, err)
	}

	start := time.Now()
	rows, err := s.db.Query(ctx, sqlQuery)
	s.logQueryWithDuration(sqlQuery, logActionLoad, time.Since(start))

	if err != nil {
		s.logError(logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		return nil, errors.Join(cachestore.ErrLoadingEntryFailed, err)
	}
	defer s.closeRows(rows)

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, errors.Join(cachestore.ErrLoadingEntryFailed, err)
		}

		return nil, nil
	}

	var (
		entry     = cachestore.Entry{Key: key}
		data      []byte
		expiresAt sql.NullTime
	)

	if err = rows.Scan(&entry.QueryType, &data, &entry.CreatedAt, &expiresAt); err != nil {
		return nil, errors.Join(cachestore.ErrLoadingEntryFailed, err)
	}

	entry.Data = data

	if expiresAt.Valid {
		entry.ExpiresAt = expiresAt.Time
	}

	return &entry, nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return cachestore.ErrEmptyKey
	}

	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Delete(s.tableName).
		Where(goqu.C(colKey).Eq(key)).
		ToSQL()
	if err != nil {
		s.logError(logMsgBuildQueryFailed, err)
		return errors.Join(cachestore.ErrDeletingEntryFailed, err)
	}

	if _, err = s.exec(ctx, sqlQuery, logActionDelete); err != nil {
		return errors.Join(cachestore.ErrDeletingEntryFailed, err)
	}

	return nil
}

// DeleteExpired removes all expired entries and returns how many were removed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Delete(s.tableName).
		Where(goqu.C(colExpiresAt).Lte(goqu.L("now()"))).
		ToSQL()
	if err != nil {
		s.logError(logMsgBuildQueryFailed, err)
		return 0, errors.Join(cachestore.ErrDeletingEntryFailed, err)
	}

	result, err := s.exec(ctx, sqlQuery, logActionPurge)
	if err != nil {
		return 0, errors.Join(cachestore.ErrDeletingEntryFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Join(cachestore.ErrDeletingEntryFailed, err)
	}

	if s.logger != nil {
		s.logger.Info(logMsgExpiredEntriesPurge, logAttrRowsAffected, rowsAffected)
	}

	return rowsAffected, nil
}

func (s *Store) buildUpsertQuery(entry cachestore.Entry) (string, error) {
	var expiresAt any
	if !entry.ExpiresAt.IsZero() {
		expiresAt = entry.ExpiresAt
	}

	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		Insert(s.tableName).
		Rows(goqu.Record{
			colKey:       entry.Key,
			colQueryType: entry.QueryType,
			colData:      goqu.L(castJsonb, string(entry.Data)),
			colCreatedAt: entry.CreatedAt,
			colExpiresAt: expiresAt,
		}).
		OnConflict(goqu.DoUpdate(colKey, goqu.Record{
			colQueryType: goqu.L("EXCLUDED." + colQueryType),
			colData:      goqu.L("EXCLUDED." + colData),
			colCreatedAt: goqu.L("EXCLUDED." + colCreatedAt),
			colExpiresAt: goqu.L("EXCLUDED." + colExpiresAt),
		})).
		ToSQL()

	return sqlQuery, err
}

func (s *Store) buildSelectQuery(key string) (string, error) {
	sqlQuery, _, err := goqu.Dialect(dialectPostgres).
		From(s.tableName).
		Select(colQueryType, colData, colCreatedAt, colExpiresAt).
		Where(
			goqu.C(colKey).Eq(key),
			goqu.Or(
				goqu.C(colExpiresAt).IsNull(),
				goqu.C(colExpiresAt).Gt(goqu.L("now()")),
			),
		).
		Limit(1).
		ToSQL()

	return sqlQuery, err
}

func (s *Store) schemaSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	%[2]s TEXT PRIMARY KEY,
	%[3]s TEXT NOT NULL,
	%[4]s JSONB NOT NULL,
	%[5]s TIMESTAMPTZ NOT NULL DEFAULT now(),
	%[6]s TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS %[1]s_%[6]s_idx ON %[1]s (%[6]s);`,
		s.tableName, colKey, colQueryType, colData, colCreatedAt, colExpiresAt)
}

func (s *Store) exec(ctx context.Context, sqlQuery, action string) (adapters.DBResult, error) {
	start := time.Now()
	result, err := s.db.Exec(ctx, sqlQuery)
	s.logQueryWithDuration(sqlQuery, action, time.Since(start))

	if err != nil {
		s.logError(logMsgDBExecFailed, err, logAttrQuery, sqlQuery)
		return nil, err
	}

	return result, nil
}

// closeRows safely closes database rows and logs any errors.
func (s *Store) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil && s.logger != nil {
		s.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

func (s *Store) logQueryWithDuration(sqlQuery, action string, duration time.Duration) {
	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, float64(duration.Nanoseconds())/1e6, logAttrQuery, sqlQuery)
	}
}

func (s *Store) logError(msg string, err error, args ...any) {
	if s.logger != nil {
		s.logger.Error(msg, append([]any{logAttrError, err.Error()}, args...)...)
	}
}

var _ cachestore.Store = (*Store)(nil)
