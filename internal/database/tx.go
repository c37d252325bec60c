package database

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
)

type txKey struct{}

// WithinTx runs fn inside a database transaction carried by the context
// passed to fn. Stores reach it through Querier. Nested calls join the
// outer transaction. The transaction commits only if fn returns nil.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Querier returns the transaction bound to ctx, or the pool when there is none.
func (db *DB) Querier(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}

	return db.DB
}

func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

// Lock serializes transactions that share key until the surrounding
// transaction ends. On SQLite writers are already serialized by BEGIN
// IMMEDIATE, so Lock is a no-op there.
func (db *DB) Lock(ctx context.Context, key string) error {
	if db.dialect != Postgres {
		return nil
	}

	if !InTx(ctx) {
		return fmt.Errorf("acquiring lock %q: no transaction in context", key)
	}

	if _, err := db.Querier(ctx).ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey(key)); err != nil {
		return fmt.Errorf("acquiring lock %q: %w", key, err)
	}

	return nil
}

func lockKey(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))

	return int64(h.Sum64())
}
