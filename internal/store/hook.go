package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Outcome filters which pitches trigger a hook.
type Outcome string

const (
	OutcomeAny     Outcome = "any"
	OutcomeStrike  Outcome = "strike"
	OutcomeBall    Outcome = "ball"
	OutcomeUnknown Outcome = "unknown"
)

// Valid reports whether o is a known outcome filter.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeAny, OutcomeStrike, OutcomeBall, OutcomeUnknown:
		return true
	}
	return false
}

// Matches reports whether a pitch with the given outcome passes the filter.
func (o Outcome) Matches(outcome string) bool {
	return o == OutcomeAny || string(o) == outcome
}

// Hook binds a pitch outcome to an installed hook plugin.
type Hook struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	PluginName string          `json:"plugin_name"`
	Outcome    Outcome         `json:"outcome"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  time.Time       `json:"created_at"`
}

// HookRepository provides CRUD operations for hooks.
type HookRepository struct {
	db *sql.DB
}

// Hooks returns the hook repository for this store.
func (s *Store) Hooks() *HookRepository {
	return &HookRepository{db: s.db}
}

const hookColumns = `id, name, plugin_name, outcome, config, enabled, created_at`

// Create inserts a new hook into the database.
func (r *HookRepository) Create(h *Hook) error {
	h.CreatedAt = time.Now().UTC()
	if h.Outcome == "" {
		h.Outcome = OutcomeAny
	}

	_, err := r.db.Exec(
		`INSERT INTO hooks (`+hookColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Name, h.PluginName, string(h.Outcome), string(configOrEmpty(h.Config)), h.Enabled, h.CreatedAt,
	)
	return err
}

// GetByID retrieves a hook by its ID.
func (r *HookRepository) GetByID(id string) (*Hook, error) {
	h, err := scanHook(r.db.QueryRow(`SELECT `+hookColumns+` FROM hooks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

// List retrieves all hooks from the database.
func (r *HookRepository) List() ([]*Hook, error) {
	return r.query(`SELECT ` + hookColumns + ` FROM hooks ORDER BY created_at DESC`)
}

// ListEnabled retrieves the hooks that should fire for a pitch with the
// given outcome.
func (r *HookRepository) ListEnabled(outcome string) ([]*Hook, error) {
	return r.query(
		`SELECT `+hookColumns+` FROM hooks
		 WHERE enabled = 1 AND (outcome = 'any' OR outcome = ?)
		 ORDER BY created_at`,
		outcome,
	)
}

func (r *HookRepository) query(q string, args ...any) ([]*Hook, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hooks []*Hook
	for rows.Next() {
		h, err := scanHook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return hooks, nil
}

// Update updates an existing hook in the database.
func (r *HookRepository) Update(h *Hook) error {
	if h.Outcome == "" {
		h.Outcome = OutcomeAny
	}
	result, err := r.db.Exec(
		`UPDATE hooks SET name = ?, plugin_name = ?, outcome = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		h.Name, h.PluginName, string(h.Outcome), string(configOrEmpty(h.Config)), h.Enabled, h.ID,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes a hook from the database by its ID.
func (r *HookRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM hooks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func scanHook(row scanner) (*Hook, error) {
	h := &Hook{}
	var outcome, config string
	var enabled int
	if err := row.Scan(&h.ID, &h.Name, &h.PluginName, &outcome, &config, &enabled, &h.CreatedAt); err != nil {
		return nil, err
	}
	h.Outcome = Outcome(outcome)
	h.Config = json.RawMessage(config)
	h.Enabled = enabled != 0
	return h, nil
}

func configOrEmpty(config json.RawMessage) json.RawMessage {
	if config == nil {
		return json.RawMessage("{}")
	}
	return config
}
