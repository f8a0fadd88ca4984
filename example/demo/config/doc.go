// Package config provides process configuration for the quotes demo.
//
// Settings come from QUOTES_* environment variables. The package also builds the
// connections the cache stores need (pgx.Pool, sql.DB, sqlx.DB, Redis) and the
// OpenTelemetry providers the pipeline reports to.
package config
