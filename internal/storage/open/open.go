// Package open picks a storage backend by driver name.
package open

import (
	"fmt"

	"github.com/brk3/habitkit/internal/storage"
	"github.com/brk3/habitkit/internal/storage/bolt"
	"github.com/brk3/habitkit/internal/storage/sqlite"
)

const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

func Store(driver, path string) (storage.Store, error) {
	switch driver {
	case DriverBolt, "":
		return bolt.Open(path)
	case DriverSQLite:
		return sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
