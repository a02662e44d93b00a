package ledger

import (
	"errors"
	"strings"
	"time"

	dbmodel "appforge/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is the durable outcome of one executed round. CommitSHA and PagesURL
// are nil when the corresponding collaborator call degraded; the record is
// written regardless.
type Record struct {
	Email     string  `json:"email"`
	Task      string  `json:"task"`
	Round     int     `json:"round"`
	Nonce     string  `json:"nonce"`
	RepoURL   string  `json:"repo_url"`
	CommitSHA *string `json:"commit_sha"`
	PagesURL  *string `json:"pages_url"`
}

func (r Record) Identity() Identity {
	return Identity{Email: r.Email, Task: r.Task, Round: r.Round, Nonce: r.Nonce}
}

var ErrNotFound = errors.New("ledger: record not found")

type Store struct {
	db *gorm.DB
}

// NewStore uses the shared process DB. Caller must not close the db.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: db}, nil
}

// Get returns the record stored under key, or ErrNotFound.
func (s *Store) Get(key string) (Record, error) {
	if s == nil || s.db == nil {
		return Record{}, errors.New("ledger store is not initialized")
	}
	var row dbmodel.CompletionRecord
	err := s.db.Where("identity_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return fromRow(row), nil
}

// Put records a completion under its identity key. First write wins: a
// record, once created, is never mutated, so a concurrent duplicate insert
// is silently dropped rather than overwriting.
func (s *Store) Put(rec Record) error {
	if s == nil || s.db == nil {
		return errors.New("ledger store is not initialized")
	}
	key := strings.TrimSpace(rec.Identity().Key())
	if key == "" {
		return errors.New("identity key is required")
	}
	row := dbmodel.CompletionRecord{
		IdentityKey: key,
		Email:       rec.Email,
		Task:        rec.Task,
		Round:       rec.Round,
		Nonce:       rec.Nonce,
		RepoURL:     rec.RepoURL,
		CommitSHA:   deref(rec.CommitSHA),
		PagesURL:    deref(rec.PagesURL),
		CreatedAt:   time.Now().UTC().Unix(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity_key"}},
		DoNothing: true,
	}).Create(&row).Error
}

// Count reports how many completions are recorded; used by tests and the
// system status endpoint.
func (s *Store) Count() (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("ledger store is not initialized")
	}
	var n int64
	if err := s.db.Model(&dbmodel.CompletionRecord{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// AppendRunEvent writes one audit row for a background run.
func (s *Store) AppendRunEvent(runID, identityKey, eventType, detail string) error {
	if s == nil || s.db == nil {
		return errors.New("ledger store is not initialized")
	}
	return s.db.Create(&dbmodel.RunEvent{
		RunID:       runID,
		IdentityKey: identityKey,
		EventType:   eventType,
		Detail:      detail,
		CreatedAt:   time.Now().UTC().Unix(),
	}).Error
}

func fromRow(row dbmodel.CompletionRecord) Record {
	rec := Record{
		Email:   row.Email,
		Task:    row.Task,
		Round:   row.Round,
		Nonce:   row.Nonce,
		RepoURL: row.RepoURL,
	}
	if row.CommitSHA != "" {
		sha := row.CommitSHA
		rec.CommitSHA = &sha
	}
	if row.PagesURL != "" {
		u := row.PagesURL
		rec.PagesURL = &u
	}
	return rec
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
