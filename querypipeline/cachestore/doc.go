// Package cachestore defines the storage contract of the result cache decorator.
//
// A Store saves, loads, and deletes Entry values keyed by a cache key. Implementations:
//   - memory: process-local map, for tests and single-instance deployments
//   - redis: shared cache on Redis with native key expiry
//   - postgres: shared cache in a PostgreSQL table, usable through pgx, database/sql, or sqlx
package cachestore
