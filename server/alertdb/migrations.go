package alertdb

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE alert(
			id INTEGER PRIMARY KEY,
			time INT NOT NULL,
			label TEXT NOT NULL,
			confidence REAL NOT NULL,
			frame_name TEXT,
			thumb BLOB
		);
		CREATE INDEX idx_alert_time ON alert (time);
	`))

	return migs
}
