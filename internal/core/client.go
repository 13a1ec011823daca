package core

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type ClientStatus string

const (
	ClientActive       ClientStatus = "active"
	ClientExpired      ClientStatus = "expired"
	ClientPendingSetup ClientStatus = "pending_setup"
	ClientSetupFailed  ClientStatus = "setup_failed"
)

// Client is the tenant metadata record managed through the manage console.
// Records are never hard-deleted; a lapsed school is flipped to expired and
// kept for renewal.
type Client struct {
	ID                 string       `json:"id" db:"id"`
	Name               string       `json:"name" db:"name"`
	Desc               string       `json:"desc,omitempty" db:"description"`
	AdminName          string       `json:"admin_name" db:"admin_name"`
	Domain             string       `json:"domain" db:"domain"`
	DatabaseID         string       `json:"db_id" db:"database_id"`
	GalleryBucketID    string       `json:"gallery_bucket_id" db:"gallery_bucket_id"`
	AssignmentBucketID string       `json:"assignment_bucket_id" db:"assignment_bucket_id"`
	NotesBucketID      string       `json:"notes_bucket_id" db:"notes_bucket_id"`
	OwnerID            string       `json:"by" db:"owner_id"`
	OwnerName          string       `json:"by_name" db:"owner_name"`
	SupportContact     string       `json:"by_contact" db:"support_contact"`
	LicenseDate        time.Time    `json:"license_date" db:"license_date"`
	LogoFileID         string       `json:"logo_image_id,omitempty" db:"logo_file_id"`
	Status             ClientStatus `json:"status" db:"status"`
	AdminUserID        string       `json:"client_admin_user_id" db:"admin_user_id"`
	LibraryUserID      string       `json:"client_library_user_id,omitempty" db:"library_user_id"`
	AdminPasswordHash  string       `json:"-" db:"admin_password_hash"`
	Notes              StringSlice  `json:"client_notes" db:"notes"`
	CreatedAt          time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at" db:"updated_at"`
}

// StringSlice stores a []string as a JSONB column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	return json.Unmarshal(value.([]byte), s)
}
