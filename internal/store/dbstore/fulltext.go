package dbstore

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var ftsTriggers = []struct {
	name string
	sql  string
}{
	{"items_ai", `CREATE TRIGGER items_ai AFTER INSERT ON items BEGIN
		INSERT INTO items_fts(rowid, text_content) VALUES (new.id, new.text_content);
	END`},
	{"items_ad", `CREATE TRIGGER items_ad AFTER DELETE ON items BEGIN
		INSERT INTO items_fts(items_fts, rowid, text_content) VALUES ('delete', old.id, old.text_content);
	END`},
	// Pin and protect toggles do not touch the index.
	{"items_au", `CREATE TRIGGER items_au AFTER UPDATE OF text_content ON items BEGIN
		INSERT INTO items_fts(items_fts, rowid, text_content) VALUES ('delete', old.id, old.text_content);
		INSERT INTO items_fts(rowid, text_content) VALUES (new.id, new.text_content);
	END`},
}

// probeFullText reports whether the SQLite build provides FTS5.
func probeFullText(db *gorm.DB) bool {
	if err := db.Exec("CREATE VIRTUAL TABLE IF NOT EXISTS temp.fts5_probe USING fts5(c)").Error; err != nil {
		return false
	}
	db.Exec("DROP TABLE IF EXISTS temp.fts5_probe")
	return true
}

// reconcileFullText brings the index and its triggers in line with FTS5
// availability. Without FTS5 the triggers are dropped so base-table writes
// keep working; the stale index is rebuilt before the triggers come back.
func reconcileFullText(db *gorm.DB, available bool) error {
	if !available {
		for _, trg := range ftsTriggers {
			if err := db.Exec("DROP TRIGGER IF EXISTS " + trg.name).Error; err != nil {
				return fmt.Errorf("failed to drop trigger %s: %w", trg.name, err)
			}
		}
		return nil
	}

	names := make([]string, len(ftsTriggers))
	for i, trg := range ftsTriggers {
		names[i] = trg.name
	}

	var installed int64
	err := db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger' AND name IN ?", names).
		Row().Scan(&installed)
	if err != nil {
		return fmt.Errorf("failed to inspect triggers: %w", err)
	}
	if int(installed) == len(ftsTriggers) {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
			text_content,
			content='items',
			content_rowid='id'
		)`).Error; err != nil {
			return fmt.Errorf("failed to create FTS5 table: %w", err)
		}

		for _, trg := range ftsTriggers {
			if err := tx.Exec("DROP TRIGGER IF EXISTS " + trg.name).Error; err != nil {
				return fmt.Errorf("failed to drop trigger %s: %w", trg.name, err)
			}
			if err := tx.Exec(trg.sql).Error; err != nil {
				return fmt.Errorf("failed to create trigger %s: %w", trg.name, err)
			}
		}

		if err := tx.Exec("INSERT INTO items_fts(items_fts) VALUES('rebuild')").Error; err != nil {
			return fmt.Errorf("failed to rebuild FTS index: %w", err)
		}
		return nil
	})
}

// phraseQuery wraps term as an FTS5 phrase.
func phraseQuery(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
}

// likePattern builds a LIKE substring pattern, escaping wildcards with '\'.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
