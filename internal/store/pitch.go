package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/golang/geo/r3"

	"github.com/ayusman/strikezone/internal/model"
)

// Pitch is a stored classification. PlateX and PlateY locate the ball in
// plate-local space when a field was placed.
type Pitch struct {
	model.PitchClassification
	FieldID string   `json:"field_id,omitempty"`
	PlateX  *float64 `json:"plate_x,omitempty"`
	PlateY  *float64 `json:"plate_y,omitempty"`
}

// NewPitch builds a record for pc, resolving its plate-local position
// against field when one is given.
func NewPitch(pc model.PitchClassification, fieldID string, field *model.FieldConfiguration) *Pitch {
	p := &Pitch{PitchClassification: pc, FieldID: fieldID}
	if field != nil {
		local := field.WorldToPlate(pc.Position)
		p.PlateX, p.PlateY = &local.X, &local.Y
	}
	return p
}

// PitchStats summarises stored pitches.
type PitchStats struct {
	Total       int      `json:"total"`
	Strikes     int      `json:"strikes"`
	Balls       int      `json:"balls"`
	Unknown     int      `json:"unknown"`
	AvgSpeedMPH *float64 `json:"avg_speed_mph,omitempty"`
	MaxSpeedMPH *float64 `json:"max_speed_mph,omitempty"`
}

// PitchRepository provides access to stored pitches.
type PitchRepository struct {
	db *sql.DB
}

// Pitches returns the pitch repository for this store.
func (s *Store) Pitches() *PitchRepository {
	return &PitchRepository{db: s.db}
}

const pitchColumns = `id, field_id, x, y, z, plate_x, plate_y, confidence, speed_mph, is_strike, detected_at, captured_at`

// Create inserts a pitch.
func (r *PitchRepository) Create(p *Pitch) error {
	var fieldID sql.NullString
	if p.FieldID != "" {
		fieldID = sql.NullString{String: p.FieldID, Valid: true}
	}

	_, err := r.db.Exec(
		`INSERT INTO pitches (`+pitchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, fieldID, p.Position.X, p.Position.Y, p.Position.Z,
		nullFloat(p.PlateX), nullFloat(p.PlateY), p.Confidence,
		nullFloat(p.SpeedMPH), nullBool(p.IsStrike),
		p.DetectedAt.UTC(), p.CapturedAt.UTC(),
	)
	return err
}

// GetByID retrieves a pitch by its ID.
func (r *PitchRepository) GetByID(id string) (*Pitch, error) {
	p, err := scanPitch(r.db.QueryRow(`SELECT `+pitchColumns+` FROM pitches WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns up to limit pitches, newest first. A limit of zero or less
// returns every pitch.
func (r *PitchRepository) List(limit int) ([]*Pitch, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT `+pitchColumns+` FROM pitches ORDER BY captured_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pitches []*Pitch
	for rows.Next() {
		p, err := scanPitch(rows)
		if err != nil {
			return nil, err
		}
		pitches = append(pitches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pitches, nil
}

// DeleteAll removes every pitch and returns how many were deleted.
func (r *PitchRepository) DeleteAll() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM pitches`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Stats aggregates every stored pitch.
func (r *PitchRepository) Stats() (PitchStats, error) {
	var s PitchStats
	var avg, top sql.NullFloat64
	err := r.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN is_strike = 1 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN is_strike = 0 THEN 1 ELSE 0 END), 0),
		        AVG(speed_mph), MAX(speed_mph)
		 FROM pitches`,
	).Scan(&s.Total, &s.Strikes, &s.Balls, &avg, &top)
	if err != nil {
		return PitchStats{}, err
	}
	s.Unknown = s.Total - s.Strikes - s.Balls
	if avg.Valid {
		s.AvgSpeedMPH = &avg.Float64
	}
	if top.Valid {
		s.MaxSpeedMPH = &top.Float64
	}
	return s, nil
}

func scanPitch(row scanner) (*Pitch, error) {
	p := &Pitch{}
	var fieldID sql.NullString
	var plateX, plateY, speed sql.NullFloat64
	var strike sql.NullBool
	var x, y, z float64
	var detectedAt, capturedAt time.Time

	err := row.Scan(&p.ID, &fieldID, &x, &y, &z, &plateX, &plateY, &p.Confidence,
		&speed, &strike, &detectedAt, &capturedAt)
	if err != nil {
		return nil, err
	}

	p.Position = r3.Vector{X: x, Y: y, Z: z}
	p.FieldID = fieldID.String
	p.PlateX = floatPtr(plateX)
	p.PlateY = floatPtr(plateY)
	p.SpeedMPH = floatPtr(speed)
	if strike.Valid {
		v := strike.Bool
		p.IsStrike = &v
	}
	p.DetectedAt = detectedAt
	p.CapturedAt = capturedAt
	return p, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
