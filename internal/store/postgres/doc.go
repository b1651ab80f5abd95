// Package postgres implements the store contracts over PostgreSQL using
// sqlx. Open waits for the database and applies the schema, so a fresh
// container works without a separate migration step.
package postgres
