package alertdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/roadwatch/roadwatch/pkg/detection"
	"gorm.io/gorm"
)

// AlertDB is the on-disk history of promoted alerts.
// The live push stream has no replay, so this is the only place a client can
// see alerts that happened before it connected.
type AlertDB struct {
	log logs.Log
	db  *gorm.DB

	// Oldest records are purged once we exceed this count.
	maxAlertCount int64
}

const DefaultMaxAlertCount = 10000

// Open or create an alert DB inside 'root'
func Open(log logs.Log, root string) (*AlertDB, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0770); err != nil {
		return nil, fmt.Errorf("Failed to create alert DB path '%v': %w", root, err)
	}
	dbPath := filepath.Join(root, "alerts.sqlite")
	log.Infof("Opening alert DB at '%v'", dbPath)
	db, err := dbh.OpenDB(log, dbh.MakeSqliteConfig(dbPath), Migrations(log), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open alert database %v: %w", dbPath, err)
	}
	return &AlertDB{
		log:           log,
		db:            db,
		maxAlertCount: DefaultMaxAlertCount,
	}, nil
}

// AddAlerts records the alerts of one frame submission.
func (a *AlertDB) AddAlerts(alerts []detection.Alert, frameName string) error {
	if len(alerts) == 0 {
		return nil
	}
	records := make([]*Alert, 0, len(alerts))
	for _, al := range alerts {
		at, err := time.Parse(time.RFC3339, al.Timestamp)
		if err != nil {
			at = time.Now().UTC()
		}
		records = append(records, &Alert{
			Time:       dbh.MakeIntTime(at),
			Label:      al.Label,
			Confidence: al.Confidence,
			FrameName:  frameName,
			Thumb:      al.Thumb,
		})
	}
	if err := a.db.Create(records).Error; err != nil {
		return err
	}
	a.purgeOldRecords()
	return nil
}

// Close releases the underlying database handle.
func (a *AlertDB) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecentAlerts returns up to 'limit' alerts, newest first.
func (a *AlertDB) RecentAlerts(limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	alerts := []Alert{}
	if err := a.db.Order("time DESC, id DESC").Limit(limit).Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (a *AlertDB) purgeOldRecords() {
	count := int64(0)
	if err := a.db.Model(&Alert{}).Count(&count).Error; err != nil {
		a.log.Warnf("Failed to count alerts: %v", err)
		return
	}
	if count <= a.maxAlertCount {
		return
	}
	err := a.db.Exec("DELETE FROM alert WHERE id IN (SELECT id FROM alert ORDER BY id ASC LIMIT ?)", count-a.maxAlertCount).Error
	if err != nil {
		a.log.Warnf("Failed to purge old alerts: %v", err)
	}
}
