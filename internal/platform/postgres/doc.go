// Package postgres provides PostgreSQL implementations of the store interfaces,
// using the pgx driver through database/sql.
//
// The schema lives in embedded goose migrations; run Migrate with MigrateUp before
// using the stores. Card updates are versioned and GetForUpdate takes a row lock,
// so concurrent reviews of the same card serialize at the database.
package postgres
