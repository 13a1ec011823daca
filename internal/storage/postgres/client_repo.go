package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/edustack/edustack/internal/core"
)

var ErrClientNotFound = errors.New("client not found")

type ClientRepo struct {
	db *DB
}

func NewClientRepo(db *DB) *ClientRepo {
	return &ClientRepo{db: db}
}

func (r *ClientRepo) Create(c *core.Client) error {
	query := `
        INSERT INTO clients (
            id, name, description, admin_name, domain,
            database_id, gallery_bucket_id, assignment_bucket_id, notes_bucket_id,
            owner_id, owner_name, support_contact, license_date, logo_file_id,
            status, admin_user_id, library_user_id, admin_password_hash,
            notes, created_at, updated_at
        ) VALUES (
            :id, :name, :description, :admin_name, :domain,
            :database_id, :gallery_bucket_id, :assignment_bucket_id, :notes_bucket_id,
            :owner_id, :owner_name, :support_contact, :license_date, :logo_file_id,
            :status, :admin_user_id, :library_user_id, :admin_password_hash,
            :notes, :created_at, :updated_at
        )`

	_, err := r.db.NamedExec(query, c)
	return err
}

func (r *ClientRepo) Get(id string) (*core.Client, error) {
	var c core.Client
	query := `SELECT * FROM clients WHERE id = $1`
	err := r.db.Get(&c, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByDomain is the resolve path: the domain portion of the user's email
// maps to exactly one school.
func (r *ClientRepo) GetByDomain(domain string) (*core.Client, error) {
	var c core.Client
	query := `SELECT * FROM clients WHERE domain = $1`
	err := r.db.Get(&c, query, domain)
	if err == sql.ErrNoRows {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepo) List(name, status string) ([]*core.Client, error) {
	clients := []*core.Client{}
	query := `
        SELECT * FROM clients
        WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
        AND ($2 = '' OR status = $2)
        ORDER BY created_at DESC`

	err := r.db.Select(&clients, query, name, status)
	return clients, err
}

func (r *ClientRepo) DomainExists(domain string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM clients WHERE domain = $1)`
	err := r.db.Get(&exists, query, domain)
	return exists, err
}

func (r *ClientRepo) UpdateDetails(id, name, desc string) (*core.Client, error) {
	query := `
        UPDATE clients SET
            name = COALESCE(NULLIF($2, ''), name),
            description = $3,
            updated_at = $4
        WHERE id = $1`

	if _, err := r.db.Exec(query, id, name, desc, time.Now()); err != nil {
		return nil, err
	}
	return r.Get(id)
}

// UpdateLicense renews the expiry date and rederives the status in the same
// statement so the two can never disagree.
func (r *ClientRepo) UpdateLicense(id string, licenseDate time.Time, status core.ClientStatus) (*core.Client, error) {
	query := `
        UPDATE clients SET
            license_date = $2,
            status = $3,
            updated_at = $4
        WHERE id = $1`

	res, err := r.db.Exec(query, id, licenseDate, status, time.Now())
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrClientNotFound
	}
	return r.Get(id)
}

func (r *ClientRepo) AppendNote(id, note string) (*core.Client, error) {
	query := `
        UPDATE clients SET
            notes = notes || to_jsonb($2::text),
            updated_at = $3
        WHERE id = $1`

	res, err := r.db.Exec(query, id, note, time.Now())
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrClientNotFound
	}
	return r.Get(id)
}

func (r *ClientRepo) SetStatus(id string, status core.ClientStatus) error {
	query := `UPDATE clients SET status = $2, updated_at = $3 WHERE id = $1`
	_, err := r.db.Exec(query, id, status, time.Now())
	return err
}

// MarkLapsed flips active records whose license date has passed. Returns the
// ids that changed so the sweeper can log them.
func (r *ClientRepo) MarkLapsed(now time.Time) ([]string, error) {
	ids := []string{}
	query := `
        UPDATE clients SET status = $1, updated_at = $2
        WHERE status = $3 AND license_date + interval '1 day' <= $2
        RETURNING id`

	err := r.db.Select(&ids, query, core.ClientExpired, now, core.ClientActive)
	return ids, err
}

func (r *ClientRepo) Ping() error {
	return r.db.Ping()
}
