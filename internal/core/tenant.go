package core

type LicenseStatus string

const (
	LicenseValid    LicenseStatus = "valid"
	LicenseExpired  LicenseStatus = "expired"
	LicenseNotFound LicenseStatus = "not_found"
	LicensePending  LicenseStatus = "pending"
)

// TenantConfig is the resolved configuration for one school. It is held in
// the session store for the lifetime of an authenticated session and
// re-resolved on every login; nothing here survives a restart.
type TenantConfig struct {
	DatabaseID         string        `json:"db_id"`
	SchoolName         string        `json:"school_name"`
	LicenseStatus      LicenseStatus `json:"license_status"`
	GalleryBucketID    string        `json:"gallery_bucket_id"`
	AssignmentBucketID string        `json:"assignment_bucket_id"`
	NotesBucketID      string        `json:"notes_bucket_id"`
	SupportContact     string        `json:"by_contact"`
	Domain             string        `json:"original_domain_attempted"`
	ResolvedBy         string        `json:"resolved_by"`
}
