package db

import (
	"strings"

	"gorm.io/gorm"
)

// StripLockingClauses removes FOR UPDATE clauses before execution. sqlite
// has no row locks and rejects the clause, so sqlite connections rewrite
// the statement instead. Writes are serialized by the database itself.
func StripLockingClauses(conn *gorm.DB) {
	rewrite := func(tx *gorm.DB) {
		sql := tx.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			sql = strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
			sql = strings.ReplaceAll(sql, "FOR UPDATE", "")
			tx.Statement.SQL.Reset()
			tx.Statement.SQL.WriteString(sql)
		}
	}
	_ = conn.Callback().Query().Before("gorm:query").Register("db:strip_locking", rewrite)
	_ = conn.Callback().Raw().Before("gorm:raw").Register("db:strip_locking_raw", rewrite)
	_ = conn.Callback().Row().Before("gorm:row").Register("db:strip_locking_row", rewrite)
}
