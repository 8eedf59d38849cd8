// Package storage defines the key-value store abstraction and its drivers.
package storage

import (
	"context"
	"fmt"
)

// Store is a durable key-value store holding string values under string keys.
// A missing key is not an error: Get reports it with ok == false.
type Store interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key succeeds.
	Remove(ctx context.Context, key string) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory = "memory"
	DriverFS     = "fs"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Drivers lists every supported driver name.
var Drivers = []string{DriverMemory, DriverFS, DriverSQLite, DriverRedis}

// Open returns the store for driver. dsn is a directory for fs, a database
// file for sqlite and a redis:// URL for redis; memory ignores it.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFS:
		return NewFS(dsn)
	case DriverSQLite:
		return OpenSQLite(dsn)
	case DriverRedis:
		return OpenRedis(ctx, dsn)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}
