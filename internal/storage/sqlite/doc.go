// Package sqlite stores roll history in SQLite using the pure-Go
// modernc.org/sqlite driver.
package sqlite
