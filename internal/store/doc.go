// Package store provides SQLite-backed durable storage for engram
// sessions, context items, the change log, and watchers.
//
// The change log is append-only:
//   - Every item mutation (create/update/delete) inserts exactly one
//     change row in the same transaction as the item write. A reader
//     can never observe one without the other.
//   - seq is an AUTOINCREMENT rowid: strictly increasing, never
//     reused, serialized by SQLite's single writer.
//   - All ordering uses seq, never timestamps. Every change query
//     MUST include ORDER BY seq ASC.
//
// Watcher rows carry a durable cursor (last-considered seq) and an
// active flag. PollWatcher reads the unread range and advances the
// cursor in one transaction, so concurrent polls of the same watcher
// cannot both claim the same range.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//   - max one open connection: SQLite has a single writer anyway
package store
