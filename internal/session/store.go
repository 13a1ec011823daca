package session

import (
	"sync"

	"github.com/edustack/edustack/internal/core"
)

const defaultNotFoundMessage = "School not found or an error occurred."

// State is the tenant configuration held for one authenticated session.
// Every downstream data-access call reads it to pick the school's database
// and buckets.
type State struct {
	core.TenantConfig
	IsLoading bool
	Err       string
}

// Update is a partial state change; nil fields keep their current value.
type Update struct {
	DatabaseID         *string
	SchoolName         *string
	LicenseStatus      *core.LicenseStatus
	GalleryBucketID    *string
	AssignmentBucketID *string
	NotesBucketID      *string
	SupportContact     *string
	Domain             *string
	Err                *string
}

// Store holds the resolved tenant configuration for the current session.
// Writers are the resolver and the gate; anything may read. A generation
// counter guards against overlapping resolutions committing stale results.
type Store struct {
	mu    sync.Mutex
	state State
	gen   uint64
}

func NewStore() *Store {
	return &Store{
		state: initialState(),
	}
}

func initialState() State {
	return State{
		TenantConfig: core.TenantConfig{LicenseStatus: core.LicensePending},
		IsLoading:    true,
	}
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = loading
}

// Begin marks a resolution in flight and returns its generation. Only the
// matching Commit will be applied; results from superseded resolutions are
// discarded.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state.IsLoading = true
	return s.gen
}

// Commit applies an update from the resolution identified by gen. Returns
// false when the resolution has been superseded or the session cleared.
func (s *Store) Commit(gen uint64, u Update) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.apply(u)
	return true
}

// SetTenantInfo merges a partial update and marks loading complete.
func (s *Store) SetTenantInfo(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(u)
}

func (s *Store) apply(u Update) {
	if u.DatabaseID != nil {
		s.state.DatabaseID = *u.DatabaseID
	}
	if u.SchoolName != nil {
		s.state.SchoolName = *u.SchoolName
	}
	if u.LicenseStatus != nil {
		s.state.LicenseStatus = *u.LicenseStatus
	}
	if u.GalleryBucketID != nil {
		s.state.GalleryBucketID = *u.GalleryBucketID
	}
	if u.AssignmentBucketID != nil {
		s.state.AssignmentBucketID = *u.AssignmentBucketID
	}
	if u.NotesBucketID != nil {
		s.state.NotesBucketID = *u.NotesBucketID
	}
	if u.SupportContact != nil {
		s.state.SupportContact = *u.SupportContact
	}
	if u.Domain != nil {
		s.state.Domain = *u.Domain
	}

	// An unresolvable school always carries an error message; otherwise an
	// update without an explicit error clears the previous one.
	if u.LicenseStatus != nil && *u.LicenseStatus == core.LicenseNotFound {
		switch {
		case u.Err != nil && *u.Err != "":
			s.state.Err = *u.Err
		case s.state.Err != "":
			// keep the existing message
		default:
			s.state.Err = defaultNotFoundMessage
		}
	} else if u.Err != nil {
		s.state.Err = *u.Err
	} else {
		s.state.Err = ""
	}

	s.state.IsLoading = false
}

// ClearTenantInfo resets to the initial shape with loading false: pending
// status signals that a fresh resolution should occur on re-entry, not that
// the session is still booting.
func (s *Store) ClearTenantInfo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = initialState()
	s.state.IsLoading = false
}

// FromConfig builds the success update for a resolved tenant.
func FromConfig(cfg *core.TenantConfig) Update {
	return Update{
		DatabaseID:         &cfg.DatabaseID,
		SchoolName:         &cfg.SchoolName,
		LicenseStatus:      &cfg.LicenseStatus,
		GalleryBucketID:    &cfg.GalleryBucketID,
		AssignmentBucketID: &cfg.AssignmentBucketID,
		NotesBucketID:      &cfg.NotesBucketID,
		SupportContact:     &cfg.SupportContact,
		Domain:             &cfg.Domain,
	}
}

// FromFailure builds the not_found update, preserving the attempted domain
// for the failure screen.
func FromFailure(message, domain string) Update {
	status := core.LicenseNotFound
	u := Update{
		LicenseStatus: &status,
		Err:           &message,
	}
	if domain != "" {
		u.Domain = &domain
	}
	return u
}
