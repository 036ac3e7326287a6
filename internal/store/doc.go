// Package store keeps the history of simulation runs in SQLite.
//
// A run is one row in runs (identity, window, policy scalars and the JSON summary)
// plus one fund_rows row per simulated month. The expanded population table is not
// persisted; it can be rebuilt from the input data.
package store
