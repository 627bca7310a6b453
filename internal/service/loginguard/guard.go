package loginguard

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/quartier-aromes/shop/internal/models"
)

const (
	// MaxAttempts failed logins from one source address within
	// LockoutWindow lock that address out.
	MaxAttempts   = 5
	LockoutWindow = 15 * time.Minute

	userAgentMaxLen = 500
)

var ErrLockedOut = errors.New("too many login attempts")

// Guard rate-limits authentication per source address. It is address
// scoped, not account scoped: one address throttles regardless of which
// username is being tried.
type Guard struct {
	DB *gorm.DB
}

func (g *Guard) failuresInWindow(ip string) (int64, error) {
	cutoff := time.Now().UTC().Add(-LockoutWindow)
	var count int64
	err := g.DB.Model(&models.LoginAttempt{}).
		Where("ip_address = ? AND attempt_time > ? AND success = ?", ip, cutoff, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("counting login attempts: %w", err)
	}
	return count, nil
}

// Check classifies a source address before credentials are verified.
// A lockout rejection is not itself recorded as an attempt.
func (g *Guard) Check(ip string) error {
	count, err := g.failuresInWindow(ip)
	if err != nil {
		return err
	}
	if count >= MaxAttempts {
		return ErrLockedOut
	}
	return nil
}

// Record logs an actual credential check, success or failure. A success
// purges every prior failed row for the address, resetting the window
// rather than waiting for it to expire.
func (g *Guard) Record(ip, username, userAgent string, success bool) error {
	if len(userAgent) > userAgentMaxLen {
		userAgent = userAgent[:userAgentMaxLen]
	}

	attempt := models.LoginAttempt{
		IPAddress:   ip,
		Username:    username,
		AttemptTime: time.Now().UTC(),
		Success:     success,
		UserAgent:   userAgent,
	}
	if err := g.DB.Create(&attempt).Error; err != nil {
		return fmt.Errorf("recording login attempt: %w", err)
	}

	if success {
		if err := g.DB.Where("ip_address = ? AND success = ?", ip, false).
			Delete(&models.LoginAttempt{}).Error; err != nil {
			return fmt.Errorf("clearing failed attempts: %w", err)
		}
	}
	return nil
}

// Remaining reports how many attempts are left in the trailing window,
// floored at zero.
func (g *Guard) Remaining(ip string) (int, error) {
	count, err := g.failuresInWindow(ip)
	if err != nil {
		return 0, err
	}
	remaining := MaxAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// PurgeOlderThan drops attempts older than the given number of days.
// Invoked from the admin security dashboard, not on a schedule.
func (g *Guard) PurgeOlderThan(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	res := g.DB.Where("attempt_time < ?", cutoff).Delete(&models.LoginAttempt{})
	if res.Error != nil {
		return 0, fmt.Errorf("purging login attempts: %w", res.Error)
	}
	return res.RowsAffected, nil
}
