// Package store wraps the SQLite database that plans run against.
//
// A Store holds two kinds of data:
//   - Datasets: plain tables loaded from fixtures (LoadDataset) so nested and
//     flat plans can be executed and compared
//   - The plan log: one row per compiled plan, keyed by plan ID, so repeated
//     plans are recorded once
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Plan log reads order by seq, then id COLLATE BINARY, so results are stable.
package store
