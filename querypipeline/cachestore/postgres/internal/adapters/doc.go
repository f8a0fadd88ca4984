// Package adapters lets the PostgreSQL cache store run on pgxpool.Pool, sql.DB, or sqlx.DB.
//
// Each adapter executes fully rendered SQL strings and exposes rows and results through
// the small DBAdapter contract, so the store stays independent of the driver library.
package adapters
