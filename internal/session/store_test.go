package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/edustack/internal/core"
)

func TestInitialStateIsPendingAndLoading(t *testing.T) {
	s := NewStore()
	state := s.Snapshot()

	assert.Equal(t, core.LicensePending, state.LicenseStatus)
	assert.True(t, state.IsLoading)
	assert.Empty(t, state.DatabaseID)
}

func TestSetTenantInfoMarksLoadingDone(t *testing.T) {
	s := NewStore()
	cfg := &core.TenantConfig{
		DatabaseID:    "db-1",
		SchoolName:    "Greenwood High",
		LicenseStatus: core.LicenseValid,
		Domain:        "greenwood.edu",
	}

	s.SetTenantInfo(FromConfig(cfg))

	state := s.Snapshot()
	assert.False(t, state.IsLoading)
	assert.Equal(t, core.LicenseValid, state.LicenseStatus)
	assert.Equal(t, "db-1", state.DatabaseID)
	assert.Empty(t, state.Err)
}

func TestNotFoundSetsErrorAndPreservesDomain(t *testing.T) {
	s := NewStore()

	s.SetTenantInfo(FromFailure("Network error or unexpected issue during school lookup.", "unknown-domain.test"))

	state := s.Snapshot()
	assert.Equal(t, core.LicenseNotFound, state.LicenseStatus)
	assert.Equal(t, "Network error or unexpected issue during school lookup.", state.Err)
	assert.Equal(t, "unknown-domain.test", state.Domain)
	assert.False(t, state.IsLoading)
}

func TestNotFoundWithoutMessageUsesDefault(t *testing.T) {
	s := NewStore()
	status := core.LicenseNotFound

	s.SetTenantInfo(Update{LicenseStatus: &status})

	assert.Equal(t, defaultNotFoundMessage, s.Snapshot().Err)
}

func TestClearThenSetValidLeavesNoStaleLoadingFlag(t *testing.T) {
	s := NewStore()

	s.ClearTenantInfo()
	status := core.LicenseValid
	s.SetTenantInfo(Update{LicenseStatus: &status})

	state := s.Snapshot()
	require.False(t, state.IsLoading)
	require.Equal(t, core.LicenseValid, state.LicenseStatus)
}

func TestClearResetsToInitialShapeWithLoadingFalse(t *testing.T) {
	s := NewStore()
	cfg := &core.TenantConfig{
		DatabaseID:    "db-1",
		LicenseStatus: core.LicenseValid,
		Domain:        "greenwood.edu",
	}
	s.SetTenantInfo(FromConfig(cfg))

	s.ClearTenantInfo()

	state := s.Snapshot()
	assert.Equal(t, core.LicensePending, state.LicenseStatus)
	assert.Empty(t, state.DatabaseID)
	assert.Empty(t, state.Domain)
	assert.Empty(t, state.Err)
	// Not loading: pending signals a fresh lookup should start, not that
	// one is in progress.
	assert.False(t, state.IsLoading)
}

func TestCommitDiscardsSupersededResolution(t *testing.T) {
	s := NewStore()

	gen1 := s.Begin()
	gen2 := s.Begin()

	stale := core.LicenseExpired
	require.False(t, s.Commit(gen1, Update{LicenseStatus: &stale}))
	assert.Equal(t, core.LicensePending, s.Snapshot().LicenseStatus)

	fresh := core.LicenseValid
	require.True(t, s.Commit(gen2, Update{LicenseStatus: &fresh}))
	assert.Equal(t, core.LicenseValid, s.Snapshot().LicenseStatus)
}

func TestCommitAfterClearIsDiscarded(t *testing.T) {
	s := NewStore()

	gen := s.Begin()
	s.ClearTenantInfo()

	status := core.LicenseValid
	require.False(t, s.Commit(gen, Update{LicenseStatus: &status}))
	assert.Equal(t, core.LicensePending, s.Snapshot().LicenseStatus)
}
