package dbstore

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	sql     string
}

// loadMigrations reads NNN_name.sql files from fsys, sorted by version.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var list []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= 0 {
			continue // Skip files that don't match pattern
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		list = append(list, migration{version: version, name: name, sql: string(content)})
	}

	sort.Slice(list, func(i, j int) bool { return list[i].version < list[j].version })
	for i := 1; i < len(list); i++ {
		if list[i].version == list[i-1].version {
			return nil, fmt.Errorf("duplicate migration version %d", list[i].version)
		}
	}

	return list, nil
}

// readSchemaVersion returns PRAGMA user_version.
func readSchemaVersion(db *gorm.DB) (int, error) {
	var version int
	if err := db.Raw("PRAGMA user_version").Row().Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// migrate applies every migration newer than the stored schema version.
// Each migration and its version bump commit in one transaction, so the
// version only advances once a migration has fully succeeded.
func migrate(db *gorm.DB, fsys fs.FS) (int, error) {
	list, err := loadMigrations(fsys)
	if err != nil {
		return 0, err
	}

	current, err := readSchemaVersion(db)
	if err != nil {
		return 0, err
	}

	for _, m := range list {
		if m.version <= current {
			continue // Already applied
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.sql).Error; err != nil {
				return err
			}
			return tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)).Error
		})
		if err != nil {
			return current, fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}
		current = m.version
	}

	return current, nil
}
