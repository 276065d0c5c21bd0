// Package domain defines the persistence models for documents, chat sessions,
// chat messages, and user profiles. These types are mapped with GORM and form
// the core data layer of the legal document analysis application.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Document categories. The tag set is closed; it selects the prompt framing
// used during analysis.
const (
	CategoryBusiness = "business"
	CategoryCitizen  = "citizen"
	CategoryStudent  = "student"
)

// Document processing statuses.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// Risk levels assigned by analysis.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ValidCategory reports whether c belongs to the closed category tag set.
func ValidCategory(c string) bool {
	return c == CategoryBusiness || c == CategoryCitizen || c == CategoryStudent
}

// ValidRiskLevel reports whether r belongs to the closed risk tag set.
func ValidRiskLevel(r string) bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// StringList is a []string stored as a JSON TEXT column. SQLite has no native
// array type, so key points are serialized on write and parsed on read.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return errors.New("domain: StringList: unsupported source type")
	}
}

// GlossaryTerm is a single legal term with its plain-language definition, in
// the order the analysis produced it.
type GlossaryTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// GlossaryTerms is a []GlossaryTerm stored as a JSON TEXT column.
type GlossaryTerms []GlossaryTerm

// Value implements driver.Valuer.
func (g GlossaryTerms) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	b, err := json.Marshal([]GlossaryTerm(g))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (g *GlossaryTerms) Scan(src any) error {
	if src == nil {
		*g = nil
		return nil
	}
	switch v := src.(type) {
	case string:
		return json.Unmarshal([]byte(v), g)
	case []byte:
		return json.Unmarshal(v, g)
	default:
		return errors.New("domain: GlossaryTerms: unsupported source type")
	}
}

// Document represents one uploaded legal file owned by a user, plus the
// AI-derived analysis once processing completes.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the uploading user; indexed for retrieval.
//   - Title: human-readable document title.
//   - Category: business | citizen | student (enforced by DB constraint).
//   - FileID: opaque handle to the stored bytes (storage is external).
//   - OriginalText: extracted text; may be a placeholder when extraction
//     is unavailable.
//   - Summary / KeyPoints / RiskLevel / GlossaryTerms: analysis output.
//     All four are nil until Status becomes "completed", then they are set
//     together by a single atomic update.
//   - Notes: optional user-editable notes.
//   - Status: uploaded | processing | completed.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Document struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID        string         `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_user_documents"`
	Title         string         `json:"title"          gorm:"type:varchar(255);not null"`
	Category      string         `json:"category"       gorm:"type:varchar(16);not null;check:category IN ('business','citizen','student')"`
	FileID        string         `json:"file_id"        gorm:"type:varchar(255);not null"`
	OriginalText  string         `json:"original_text"  gorm:"type:text;not null"`
	Summary       *string        `json:"summary,omitempty"        gorm:"type:text"`
	KeyPoints     StringList     `json:"key_points,omitempty"     gorm:"type:text"`
	RiskLevel     *string        `json:"risk_level,omitempty"     gorm:"type:varchar(8);check:risk_level IS NULL OR risk_level IN ('low','medium','high')"`
	GlossaryTerms GlossaryTerms  `json:"glossary_terms,omitempty" gorm:"type:text"`
	Notes         *string        `json:"notes,omitempty" gorm:"type:text"`
	Status        string         `json:"status"         gorm:"type:varchar(16);not null;default:'uploaded';check:status IN ('uploaded','processing','completed')"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }

// Analyzed reports whether the analysis fields may be read. They are only
// meaningful once the lifecycle has reached "completed".
func (d *Document) Analyzed() bool { return d.Status == StatusCompleted }

// ChatSession represents a user-owned conversation thread, optionally linked
// to a document so replies can use its summary as context.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: identifier of the session owner; indexed.
//   - DocumentID: optional foreign key to a document owned by the same user.
//   - Title: session title (auto-generated from the first prompt if left as
//     the default).
type ChatSession struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string         `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_sessions"`
	DocumentID *string        `json:"document_id,omitempty" gorm:"type:char(36);index"`
	Title      string         `json:"title"       gorm:"type:varchar(255);not null;default:'New chat'"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`

	// Document is the optionally linked document. The association is not
	// cascade-deleted; a session outlives its document link.
	Document *Document `json:"-" gorm:"foreignKey:DocumentID;references:ID"`
}

// TableName returns the database table name for ChatSession.
func (ChatSession) TableName() string { return "chat_sessions" }

// ChatMessage is a single immutable utterance within a session, authored
// either by the "user" or the "assistant". Messages within a session are
// totally ordered by (CreatedAt, ID).
type ChatMessage struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	SessionID string         `json:"session_id" gorm:"type:char(36);not null;index:idx_session_msgs,priority:1"`
	Role      string         `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content   string         `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_session_msgs,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	// Session is the parent conversation. Messages are cascade-deleted
	// if their session is removed.
	Session ChatSession `json:"-" gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// UserProfile stores per-user preferences: the default document category and
// UI settings. One row per user, created on first save and patched in place
// afterwards.
type UserProfile struct {
	ID            string         `json:"id"            gorm:"type:char(36);primaryKey"`
	UserID        string         `json:"user_id"       gorm:"type:varchar(64);not null;uniqueIndex:ux_profile_user"`
	Category      string         `json:"category"      gorm:"type:varchar(16);not null;check:category IN ('business','citizen','student')"`
	Theme         string         `json:"theme"         gorm:"type:varchar(8);not null;default:'light';check:theme IN ('light','dark')"`
	Notifications bool           `json:"notifications" gorm:"not null;default:true"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"             gorm:"index"`
}

// TableName returns the database table name for UserProfile.
func (UserProfile) TableName() string { return "user_profiles" }
