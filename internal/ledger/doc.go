// Package ledger records per-run document outcomes in a SQLite database so
// the status command can report on past runs and operators can audit what a
// given run touched. The output directory remains the source of truth for
// idempotent resume; the ledger is bookkeeping, not coordination.
package ledger
