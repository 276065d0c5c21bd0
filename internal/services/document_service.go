// Package services – DocumentService
//
// This file implements the DocumentService, which owns the document
// processing lifecycle: uploaded → processing → completed, reverting to
// uploaded when analysis fails. Submit persists the document and schedules
// exactly one background Advance per upload; Advance drives the state machine
// and writes the analysis results back atomically.
//
// Service-level errors (e.g., ErrDocumentNotFound) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/legaluplift/go-legal-backend/internal/ai"
	"github.com/legaluplift/go-legal-backend/internal/domain"
	"github.com/legaluplift/go-legal-backend/internal/worker"
)

// Analyzer is the boundary to the hosted completion service. Both service
// types consume it; internal/ai.Client is the production implementation.
type Analyzer interface {
	// Analyze produces a structured analysis of a document's text.
	Analyze(ctx context.Context, text, category string) (*ai.Analysis, error)
	// Chat produces one assistant reply, optionally informed by document
	// context and a category.
	Chat(ctx context.Context, message, contextText, category string) (string, error)
}

// JobQueue schedules one-shot background work. internal/worker.Queue is the
// production implementation; tests substitute a synchronous fake.
type JobQueue interface {
	Enqueue(j worker.Job)
}

// DocumentRepo defines the repository contract required by DocumentService.
type DocumentRepo interface {
	// CreateDocument inserts a new document row in the uploaded state.
	CreateDocument(ctx context.Context, db *gorm.DB, userID, title, category, fileID, originalText string) (*domain.Document, error)

	// ListDocuments returns all documents belonging to the user.
	ListDocuments(ctx context.Context, db *gorm.DB, userID string) ([]domain.Document, error)

	// CountDocuments returns the total number of documents for pagination.
	CountDocuments(ctx context.Context, db *gorm.DB, userID string) (int64, error)

	// ListDocumentsPage returns a page of documents belonging to the user.
	ListDocumentsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Document, error)

	// GetDocument fetches a document by ID ensuring it belongs to the user.
	GetDocument(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Document, error)

	// GetDocumentAny fetches a document by ID without an ownership scope
	// (background worker only).
	GetDocumentAny(ctx context.Context, db *gorm.DB, id string) (*domain.Document, error)

	// UpdateDocumentStatus sets only the status column.
	UpdateDocumentStatus(ctx context.Context, db *gorm.DB, id, status string) error

	// UpdateDocumentAnalysis writes all analysis fields plus status=completed
	// in one statement.
	UpdateDocumentAnalysis(ctx context.Context, db *gorm.DB, id, summary string, keyPoints []string, riskLevel string, glossary []domain.GlossaryTerm) error

	// UpdateDocumentNotes patches notes, enforcing user ownership.
	UpdateDocumentNotes(ctx context.Context, db *gorm.DB, id, userID, notes string) error
}

// DocumentService coordinates document persistence and the asynchronous
// analysis lifecycle.
type DocumentService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the document repository used by this service.
	Repo DocumentRepo
	// AI is the analysis boundary.
	AI Analyzer
	// Queue schedules the one-shot Advance job per Submit.
	Queue JobQueue

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewDocumentService constructs a DocumentService with sane defaults.
func NewDocumentService(db *gorm.DB, r DocumentRepo, a Analyzer, q JobQueue) *DocumentService {
	return &DocumentService{
		DB:          db,
		Repo:        r,
		AI:          a,
		Queue:       q,
		TitleMaxLen: 255,
	}
}

// Submit validates the upload, creates the document in the uploaded state,
// and schedules exactly one background Advance. It returns the persisted
// document immediately; the submitter never blocks on analysis.
func (s *DocumentService) Submit(ctx context.Context, userID, title, category, fileID, originalText string) (*domain.Document, error) {
	tr := otel.Tracer("services/DocumentService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("document.category", category),
		),
	)
	defer span.End()

	title = normalizeTitle(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if !domain.ValidCategory(category) {
		return nil, ErrInvalidCategory
	}
	if strings.TrimSpace(fileID) == "" {
		return nil, ErrEmptyFileID
	}
	if strings.TrimSpace(originalText) == "" {
		// Real PDF extraction lives outside this service; uploads may arrive
		// with no extracted text, in which case a placeholder is stored.
		originalText = placeholderText(title, category, fileID)
	}

	doc, err := s.Repo.CreateDocument(ctx, s.DB, userID, s.clip(title), category, fileID, originalText)
	if err != nil {
		return nil, err
	}

	id := doc.ID
	s.Queue.Enqueue(worker.Job{
		Key:  "document:" + id,
		Name: "document.advance",
		Run: func(jobCtx context.Context) {
			if err := s.Advance(jobCtx, id); err != nil {
				log.Error().Err(err).Str("document_id", id).Msg("document advance failed")
			}
		},
	})
	return doc, nil
}

// Advance drives one document through the processing lifecycle. It is invoked
// exactly once per Submit, from a background job.
//
// Behavior:
//   - missing document → no-op
//   - sets status=processing, invokes analysis
//   - success → writes summary/keyPoints/riskLevel/glossaryTerms together
//     with status=completed, atomically
//   - analysis error (including an empty completion) → reverts to uploaded,
//     leaving the document otherwise untouched
//
// The returned error reports store failures only; analysis failures are
// converted into the revert transition and logged.
func (s *DocumentService) Advance(ctx context.Context, documentID string) error {
	tr := otel.Tracer("services/DocumentService")
	ctx, span := tr.Start(ctx, "Advance",
		trace.WithAttributes(attribute.String("document.id", documentID)),
	)
	defer span.End()

	doc, err := s.Repo.GetDocumentAny(ctx, s.DB, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if err := s.Repo.UpdateDocumentStatus(ctx, s.DB, documentID, domain.StatusProcessing); err != nil {
		return err
	}

	res, err := s.AI.Analyze(ctx, doc.OriginalText, doc.Category)
	if err != nil {
		log.Warn().Err(err).Str("document_id", documentID).Msg("analysis failed; reverting document to uploaded")
		// The analysis may have failed precisely because ctx expired; the
		// revert must still reach the store or the document stays stuck in
		// processing forever.
		revertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return s.Repo.UpdateDocumentStatus(revertCtx, s.DB, documentID, domain.StatusUploaded)
	}

	glossary := make([]domain.GlossaryTerm, 0, len(res.GlossaryTerms))
	for _, g := range res.GlossaryTerms {
		glossary = append(glossary, domain.GlossaryTerm{Term: g.Term, Definition: g.Definition})
	}
	return s.Repo.UpdateDocumentAnalysis(ctx, s.DB, documentID, res.Summary, res.KeyPoints, res.RiskLevel, glossary)
}

// Get returns a document owned by userID, or ErrDocumentNotFound.
func (s *DocumentService) Get(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := s.Repo.GetDocument(ctx, s.DB, documentID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// List returns all documents for a user (non-paginated).
// Prefer ListPage for scalability on large datasets.
func (s *DocumentService) List(ctx context.Context, userID string) ([]domain.Document, error) {
	return s.Repo.ListDocuments(ctx, s.DB, userID)
}

// ListPage returns a page of documents for a user (paginated).
// It applies defaults for invalid page/pageSize and returns the total count.
func (s *DocumentService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Document, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountDocuments(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Document{}, 0, nil
	}

	items, err := s.Repo.ListDocumentsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// UpdateNotes patches the notes of a document owned by userID. Ownership is
// enforced in the update itself; a mismatch or missing document both surface
// as ErrDocumentNotFound.
func (s *DocumentService) UpdateNotes(ctx context.Context, userID, documentID, notes string) error {
	err := s.Repo.UpdateDocumentNotes(ctx, s.DB, documentID, userID, notes)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrDocumentNotFound
	}
	return err
}

// clip truncates a document title to the configured maximum rune length.
func (s *DocumentService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// placeholderText renders the stand-in for extracted PDF text when the upload
// supplies none.
func placeholderText(title, category, fileID string) string {
	return fmt.Sprintf("[PDF Content] Document: %s\nCategory: %s\nFile: %s\n\nThis is a placeholder for extracted PDF text.", title, category, fileID)
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
