package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const sqliteMemoryDSN = "file::memory:?cache=shared&_foreign_keys=1"

// MemoryDSN returns an in-memory SQLite DSN whose contents are shared only by
// connections opened with the same name.
func MemoryDSN(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return sqliteMemoryDSN
	}
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", b.String())
}

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn := cfg.DSN

	if dsn == "" {
		path := strings.TrimSpace(cfg.Path)
		switch {
		case path == "", strings.EqualFold(path, ":memory:"):
			dsn = sqliteMemoryDSN
		default:
			if err := ensureDir(path); err != nil {
				return nil, err
			}
			dsn = fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", filepath.ToSlash(path))
		}
	} else {
		dsn = withImmediateTxLock(dsn)
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}

	if err := enableForeignKeys(db); err != nil {
		return nil, err
	}

	return db, nil
}

// withImmediateTxLock makes file-backed transactions take the write lock at
// BEGIN, so concurrent writers queue on the busy timeout instead of failing
// with SQLITE_BUSY when they upgrade a read lock.
func withImmediateTxLock(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.Contains(lower, "mode=memory") || strings.Contains(lower, ":memory:") {
		return dsn
	}
	for _, param := range []string{"_txlock=immediate", "_busy_timeout=5000"} {
		key, _, _ := strings.Cut(param, "=")
		if strings.Contains(lower, key+"=") {
			continue
		}
		if strings.Contains(dsn, "?") {
			dsn += "&" + param
		} else {
			dsn += "?" + param
		}
	}
	return dsn
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func enableForeignKeys(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil && err != sql.ErrConnDone {
		return err
	}
	return nil
}
