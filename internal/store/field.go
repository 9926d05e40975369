package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/strikezone/internal/model"
)

// FieldRecord is a committed field configuration with its row ID.
type FieldRecord struct {
	ID        string                   `json:"id"`
	Config    model.FieldConfiguration `json:"config"`
	Active    bool                     `json:"active"`
	CreatedAt time.Time                `json:"created_at"`
}

// FieldRepository stores committed fields. At most one row is active.
type FieldRepository struct {
	db *sql.DB
}

// Fields returns the field repository for this store.
func (s *Store) Fields() *FieldRepository {
	return &FieldRepository{db: s.db}
}

// SaveActive stores cfg as the only active field and returns its ID.
func (r *FieldRepository) SaveActive(cfg *model.FieldConfiguration) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	var wkt sql.NullString
	if cfg.Location != nil {
		text, err := cfg.Location.WKT()
		if err != nil {
			return "", err
		}
		wkt = sql.NullString{String: text, Valid: true}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE field_configs SET active = 0 WHERE active = 1`); err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = tx.Exec(
		`INSERT INTO field_configs (id, config, location_wkt, active, placed_at, created_at)
		 VALUES (?, ?, ?, 1, ?, ?)`,
		id, string(data), wkt, cfg.PlacedAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return "", err
	}
	return id, tx.Commit()
}

// Active returns the active field, or ErrNotFound.
func (r *FieldRepository) Active() (*FieldRecord, error) {
	return r.scanOne(
		`SELECT id, config, active, created_at FROM field_configs
		 WHERE active = 1 ORDER BY created_at DESC LIMIT 1`,
	)
}

// GetByID retrieves a field by its ID.
func (r *FieldRepository) GetByID(id string) (*FieldRecord, error) {
	return r.scanOne(
		`SELECT id, config, active, created_at FROM field_configs WHERE id = ?`, id,
	)
}

// Deactivate clears the active flag, e.g. after a reset.
func (r *FieldRepository) Deactivate() error {
	_, err := r.db.Exec(`UPDATE field_configs SET active = 0 WHERE active = 1`)
	return err
}

// List returns all stored fields, newest first.
func (r *FieldRepository) List() ([]*FieldRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, config, active, created_at FROM field_configs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []*FieldRecord
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *FieldRepository) scanOne(query string, args ...any) (*FieldRecord, error) {
	f, err := scanField(r.db.QueryRow(query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanField(row scanner) (*FieldRecord, error) {
	f := &FieldRecord{}
	var data string
	var active int
	if err := row.Scan(&f.ID, &data, &active, &f.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &f.Config); err != nil {
		return nil, err
	}
	f.Active = active != 0
	return f, nil
}
