// Package postgres implements the schedule and history stores of the
// internal/store package on PostgreSQL through the pgx database/sql driver.
// It also owns the embedded schema migrations and connection setup.
package postgres
