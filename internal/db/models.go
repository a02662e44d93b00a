package db

// CompletionRecord is one finished unit of work, keyed by the serialized
// request identity. Rows are written once and never updated; a replayed
// delivery only reads them back.
type CompletionRecord struct {
	IdentityKey string `gorm:"column:identity_key;primaryKey"`
	Email       string `gorm:"column:email;not null;default:''"`
	Task        string `gorm:"column:task;not null;default:''"`
	Round       int    `gorm:"column:round;not null;default:0"`
	Nonce       string `gorm:"column:nonce;not null;default:''"`
	RepoURL     string `gorm:"column:repo_url;not null;default:''"`
	CommitSHA   string `gorm:"column:commit_sha;not null;default:''"`
	PagesURL    string `gorm:"column:pages_url;not null;default:''"`
	CreatedAt   int64  `gorm:"column:created_at;not null;default:0"`
}

func (CompletionRecord) TableName() string { return "completion_records" }

// RunEvent is an audit trail of background run outcomes; purely observational.
type RunEvent struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement"`
	RunID       string `gorm:"column:run_id;not null"`
	IdentityKey string `gorm:"column:identity_key;not null"`
	EventType   string `gorm:"column:event_type;not null"`
	Detail      string `gorm:"column:detail;not null;default:''"`
	CreatedAt   int64  `gorm:"column:created_at;not null;default:0"`
}

func (RunEvent) TableName() string { return "run_events" }
