package postgres

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Logos are capped well below postgres row limits; anything larger is a
// client mistake, not a school crest.
const maxLogoBytes = 2 << 20

// LogoRepo stores uploaded school logos. The portal serves them by id; the
// tenant record only carries the id.
type LogoRepo struct {
	db *DB
}

func NewLogoRepo(db *DB) *LogoRepo {
	return &LogoRepo{db: db}
}

func (r *LogoRepo) SaveLogo(ctx context.Context, filename string, content io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(content, maxLogoBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read logo: %w", err)
	}
	if len(data) > maxLogoBytes {
		return "", fmt.Errorf("logo exceeds %d bytes", maxLogoBytes)
	}

	id := "logo_" + uuid.New().String()
	query := `INSERT INTO logo_files (id, filename, content) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, id, filename, data); err != nil {
		return "", fmt.Errorf("failed to store logo: %w", err)
	}
	return id, nil
}

func (r *LogoRepo) GetLogo(ctx context.Context, id string) (string, []byte, error) {
	var row struct {
		Filename string `db:"filename"`
		Content  []byte `db:"content"`
	}
	query := `SELECT filename, content FROM logo_files WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return "", nil, err
	}
	return row.Filename, row.Content, nil
}
