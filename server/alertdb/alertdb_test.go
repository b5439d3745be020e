package alertdb

import (
	"fmt"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/roadwatch/roadwatch/pkg/detection"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *AlertDB {
	t.Helper()
	db, err := Open(logs.NewTestingLog(t), t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create AlertDB: %v", err)
	}
	return db
}

func TestAddAndQueryAlerts(t *testing.T) {
	db := setup(t)

	recent, err := db.RecentAlerts(10)
	require.NoError(t, err)
	require.Empty(t, recent)

	// Empty input is a no-op
	require.NoError(t, db.AddAlerts(nil, "whatever.jpg"))

	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.AddAlerts([]detection.Alert{
		{Label: "pothole", Confidence: 0.8, Timestamp: ts.Format(time.RFC3339), Thumb: []byte{1, 2, 3}},
		{Label: "debris", Confidence: 0.6, Timestamp: ts.Add(time.Second).Format(time.RFC3339)},
	}, "1717243200000_road.jpg"))

	recent, err = db.RecentAlerts(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	// Newest first
	require.Equal(t, "debris", recent[0].Label)
	require.Equal(t, "pothole", recent[1].Label)
	require.Equal(t, "1717243200000_road.jpg", recent[1].FrameName)
	require.Equal(t, []byte{1, 2, 3}, recent[1].Thumb)
	require.Equal(t, ts.Unix(), recent[1].Time.Get().Unix())
}

func TestRecentAlertsLimit(t *testing.T) {
	db := setup(t)
	for i := 0; i < 10; i++ {
		require.NoError(t, db.AddAlerts([]detection.Alert{
			{Label: fmt.Sprintf("hazard-%v", i), Confidence: 0.9, Timestamp: time.Now().UTC().Format(time.RFC3339)},
		}, ""))
	}
	recent, err := db.RecentAlerts(3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
}

func TestPurgeOldAlerts(t *testing.T) {
	db := setup(t)
	db.maxAlertCount = 5

	for i := 0; i < 20; i++ {
		require.NoError(t, db.AddAlerts([]detection.Alert{
			{Label: fmt.Sprintf("hazard-%v", i), Confidence: 0.9, Timestamp: time.Now().UTC().Format(time.RFC3339)},
		}, ""))
	}

	recent, err := db.RecentAlerts(100)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	// The survivors are the newest records
	require.Equal(t, "hazard-19", recent[0].Label)
}
