package license

import (
	"time"

	"github.com/edustack/edustack/internal/core"
)

// StatusAt derives the license status from the expiry date. Status is never
// stored independently of the date; every read path recomputes it so a
// lapsed license cannot keep reporting valid.
func StatusAt(expiry time.Time, now time.Time) core.LicenseStatus {
	if expiry.IsZero() {
		return core.LicenseNotFound
	}
	// The license covers the whole expiry day.
	if now.Before(expiry.Add(24 * time.Hour)) {
		return core.LicenseValid
	}
	return core.LicenseExpired
}

// RecordStatusAt derives the tenant record status. Setup states are owned by
// the provisioning flow and pass through untouched.
func RecordStatusAt(current core.ClientStatus, expiry time.Time, now time.Time) core.ClientStatus {
	if current == core.ClientPendingSetup || current == core.ClientSetupFailed {
		return current
	}
	if StatusAt(expiry, now) == core.LicenseValid {
		return core.ClientActive
	}
	return core.ClientExpired
}
