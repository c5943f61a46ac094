package storage

import (
	"strings"

	"github.com/reotam5/stock-visualizer/internal/portfolio"
)

const tokenKey = "api_token"

// Store reads and writes the allocation set and credential. The engine only
// ever sees snapshots taken at request start; it never writes back.
type Store struct {
	db           DB
	defaultToken string
}

// NewStore creates a store. defaultToken is the build-time token used when no
// runtime token has been saved.
func NewStore(db DB, defaultToken string) *Store {
	return &Store{db: db, defaultToken: defaultToken}
}

// AddEntry inserts an asset with its allocation. Symbols are unique; adding
// a symbol that already exists is a no-op.
func (s *Store) AddEntry(asset portfolio.Asset, allocation float64) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO portfolio(symbol,name,price,allocation) VALUES(?,?,?,?)`,
		strings.ToUpper(asset.Symbol), asset.Name, asset.Price, allocation)
	return err
}

// UpdateAllocation sets the allocation percentage for a held symbol.
func (s *Store) UpdateAllocation(symbol string, allocation float64) error {
	_, err := s.db.Exec(`UPDATE portfolio SET allocation=? WHERE symbol=?`,
		allocation, strings.ToUpper(symbol))
	return err
}

// RemoveEntry deletes a symbol from the portfolio.
func (s *Store) RemoveEntry(symbol string) error {
	_, err := s.db.Exec(`DELETE FROM portfolio WHERE symbol=?`, strings.ToUpper(symbol))
	return err
}

// Clear removes every entry.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM portfolio`)
	return err
}

// Entries returns the allocation set in insertion order. That order is what
// drives the canonical date axis during alignment, so it must be stable.
func (s *Store) Entries() ([]portfolio.AllocationEntry, error) {
	rows, err := s.db.Query(`SELECT symbol,name,price,allocation FROM portfolio ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []portfolio.AllocationEntry
	for rows.Next() {
		var e portfolio.AllocationEntry
		if err := rows.Scan(&e.Asset.Symbol, &e.Asset.Name, &e.Asset.Price, &e.Allocation); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetToken saves the runtime API token, overriding the build-time default.
func (s *Store) SetToken(token string) error {
	_, err := s.db.Exec(`INSERT INTO settings(key,value) VALUES(?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, tokenKey, token)
	return err
}

// Token returns the runtime token if one was saved, else the build-time
// default. An empty result means no credential is configured.
func (s *Store) Token() string {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key=?`, tokenKey).Scan(&v)
	if err == nil && v != "" {
		return v
	}
	return s.defaultToken
}
