package loginguard

import (
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.LoginAttempt{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func TestLockoutAfterMaxFailures(t *testing.T) {
	g := &Guard{DB: initTestDB(t)}
	ip := "10.0.0.1"

	for i := 0; i < MaxAttempts; i++ {
		require.NoError(t, g.Check(ip))
		require.NoError(t, g.Record(ip, "alice", "test-agent", false))
	}

	require.ErrorIs(t, g.Check(ip), ErrLockedOut)

	// A different address is unaffected.
	require.NoError(t, g.Check("10.0.0.2"))
}

func TestLockoutIsAddressScopedNotAccountScoped(t *testing.T) {
	g := &Guard{DB: initTestDB(t)}
	ip := "10.0.0.3"

	usernames := []string{"a", "b", "c", "d", "e"}
	for _, u := range usernames {
		require.NoError(t, g.Record(ip, u, "", false))
	}

	require.ErrorIs(t, g.Check(ip), ErrLockedOut)
}

func TestSuccessResetsWindow(t *testing.T) {
	g := &Guard{DB: initTestDB(t)}
	ip := "10.0.0.4"

	for i := 0; i < MaxAttempts-1; i++ {
		require.NoError(t, g.Record(ip, "alice", "", false))
	}
	require.NoError(t, g.Record(ip, "alice", "", true))

	require.NoError(t, g.Check(ip))
	remaining, err := g.Remaining(ip)
	require.NoError(t, err)
	require.Equal(t, MaxAttempts, remaining)

	// The successful row itself survives the purge.
	var rows int64
	require.NoError(t, g.DB.Model(&models.LoginAttempt{}).Count(&rows).Error)
	require.EqualValues(t, 1, rows)
}

func TestRemainingFloorsAtZero(t *testing.T) {
	g := &Guard{DB: initTestDB(t)}
	ip := "10.0.0.5"

	for i := 0; i < MaxAttempts+3; i++ {
		require.NoError(t, g.Record(ip, "alice", "", false))
	}

	remaining, err := g.Remaining(ip)
	require.NoError(t, err)
	require.Equal(t, 0, remaining)
}

func TestOldFailuresFallOutOfWindow(t *testing.T) {
	db := initTestDB(t)
	g := &Guard{DB: db}
	ip := "10.0.0.6"

	stale := time.Now().UTC().Add(-LockoutWindow - time.Minute)
	for i := 0; i < MaxAttempts; i++ {
		require.NoError(t, db.Create(&models.LoginAttempt{
			IPAddress:   ip,
			AttemptTime: stale,
			Success:     false,
		}).Error)
	}

	require.NoError(t, g.Check(ip))
}

func TestUserAgentTruncated(t *testing.T) {
	db := initTestDB(t)
	g := &Guard{DB: db}

	long := strings.Repeat("x", userAgentMaxLen+200)
	require.NoError(t, g.Record("10.0.0.7", "alice", long, false))

	var attempt models.LoginAttempt
	require.NoError(t, db.First(&attempt).Error)
	require.Len(t, attempt.UserAgent, userAgentMaxLen)
}

func TestPurgeOlderThan(t *testing.T) {
	db := initTestDB(t)
	g := &Guard{DB: db}

	old := time.Now().UTC().AddDate(0, 0, -31)
	recent := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Create(&models.LoginAttempt{IPAddress: "1.1.1.1", AttemptTime: old}).Error)
	require.NoError(t, db.Create(&models.LoginAttempt{IPAddress: "1.1.1.1", AttemptTime: recent}).Error)

	removed, err := g.PurgeOlderThan(30)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var rows int64
	require.NoError(t, db.Model(&models.LoginAttempt{}).Count(&rows).Error)
	require.EqualValues(t, 1, rows)
}
