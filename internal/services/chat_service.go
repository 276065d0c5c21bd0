// Package services – ChatService
//
// This file implements ChatService, the application-level component that owns
// chat sessions and their messages. It validates inputs, checks session
// ownership, persists user messages, and schedules exactly one asynchronous
// assistant reply per user message. Reply jobs for the same session are
// serialized by the worker queue so assistant messages land in request order
// even under rapid successive sends.
//
// Optional enhancement: it also auto-generates a session title from the first
// user prompt when the session still has a default/empty title.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// session/user identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/legaluplift/go-legal-backend/internal/domain"
	"github.com/legaluplift/go-legal-backend/internal/repo"
	"github.com/legaluplift/go-legal-backend/internal/worker"
)

const (
	// default titles considered "placeholder" and eligible for auto-generation
	defaultTitleNew      = "New chat"
	defaultTitleUntitled = "Untitled"

	// noSummaryPlaceholder stands in for a linked document that has not
	// completed analysis yet.
	noSummaryPlaceholder = "No summary available"
)

// ChatService coordinates chat session persistence and asynchronous reply
// generation.
type ChatService struct {
	DB    *gorm.DB
	AI    Analyzer
	Queue JobQueue

	// MaxPromptRunes caps user message length; 0 disables the check.
	MaxPromptRunes int

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int
}

// NewChatService constructs a ChatService with sane defaults.
func NewChatService(db *gorm.DB, a Analyzer, q JobQueue) *ChatService {
	return &ChatService{
		DB:             db,
		AI:             a,
		Queue:          q,
		MaxPromptRunes: 2000,
		TitleLocale:    language.Und,
		TitleMaxLen:    60,
	}
}

// Create starts a new session owned by userID, optionally linked to a
// document. A linked document must itself belong to userID; anything else
// fails closed with ErrDocumentNotFound.
func (s *ChatService) Create(ctx context.Context, userID, title string, documentID *string) (*domain.ChatSession, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	title = normalizeTitle(title)
	if title == "" {
		title = defaultTitleNew
	}

	if documentID != nil {
		if _, err := repo.GetDocument(ctx, s.DB, *documentID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrDocumentNotFound
			}
			return nil, err
		}
	}
	return repo.CreateSession(ctx, s.DB, userID, s.clipTitle(title), documentID)
}

// List returns all sessions for a user, newest first (non-paginated).
func (s *ChatService) List(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	return repo.ListSessions(ctx, s.DB, userID)
}

// ListPage returns a page of sessions for a user and the total count.
func (s *ChatService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.ChatSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountSessions(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatSession{}, 0, nil
	}

	items, err := repo.ListSessionsPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// ListMessagesPage returns paginated messages for a session owned by userID,
// oldest first. Ownership is verified before any data is read; a mismatch is
// indistinguishable from a missing session.
func (s *ChatService) ListMessagesPage(ctx context.Context, userID, sessionID string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "ListMessagesPage",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := repo.GetSession(ctx, s.DB, sessionID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrSessionNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountMessages(s.DB.WithContext(ctx), sessionID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}

	items, err := repo.ListMessagesPage(s.DB.WithContext(ctx), sessionID, offset, pageSize)
	return items, total, err
}

// Send validates and persists a user message, then schedules exactly one
// asynchronous assistant reply. It returns the persisted user message before
// the reply exists; callers observe the reply later via ListMessagesPage.
//
// The user message is committed before the reply job is enqueued, so message
// order within a session is causally consistent.
func (s *ChatService) Send(ctx context.Context, userID, sessionID, content string) (*domain.ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(content) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	sess, err := repo.GetSession(ctx, s.DB, sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	msg, err := repo.CreateChatMessage(s.DB.WithContext(ctx), sessionID, domain.RoleUser, content)
	if err != nil {
		return nil, err
	}

	// Auto-title if placeholder; best effort, the message is already stored.
	if s.shouldAutoTitle(sess.Title) {
		if gen := s.generateTitleFromPrompt(content); gen != "" {
			if uerr := repo.UpdateSessionTitle(ctx, s.DB, sessionID, s.clipTitle(gen)); uerr != nil {
				log.Debug().Err(uerr).Str("session_id", sessionID).Msg("session auto-title skipped")
			}
		}
	}

	s.Queue.Enqueue(worker.Job{
		Key:  "session:" + sessionID,
		Name: "chat.reply",
		Run: func(jobCtx context.Context) {
			if err := s.generateReply(jobCtx, sessionID, content); err != nil {
				log.Error().Err(err).Str("session_id", sessionID).Msg("assistant reply failed")
			}
		},
	})
	return msg, nil
}

// generateReply produces and persists the assistant reply for one user
// message. It runs once per Send, from a background job keyed by session.
//
// When the session links a document, the document's title, summary (or a
// "no summary" placeholder), and category are folded into the model call. A
// transport failure appends nothing; an empty completion is already replaced
// by a fixed apology inside the Analyzer.
func (s *ChatService) generateReply(ctx context.Context, sessionID, userMessage string) error {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "generateReply",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	defer span.End()

	sess, err := repo.GetSessionAny(ctx, s.DB, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	var contextText, category string
	if sess.DocumentID != nil {
		doc, derr := repo.GetDocumentAny(ctx, s.DB, *sess.DocumentID)
		if derr == nil {
			summary := noSummaryPlaceholder
			if doc.Summary != nil && *doc.Summary != "" {
				summary = *doc.Summary
			}
			contextText = "Document: " + doc.Title + "\nSummary: " + summary
			category = doc.Category
		} else if !errors.Is(derr, gorm.ErrRecordNotFound) {
			return derr
		}
	}

	reply, err := s.AI.Chat(ctx, userMessage, contextText, category)
	if err != nil {
		return err
	}

	_, err = repo.CreateChatMessage(s.DB.WithContext(ctx), sessionID, domain.RoleAssistant, reply)
	return err
}

// shouldAutoTitle reports whether the current title is a placeholder.
func (s *ChatService) shouldAutoTitle(current string) bool {
	t := strings.TrimSpace(strings.ToLower(current))
	return t == "" || t == strings.ToLower(defaultTitleNew) || t == strings.ToLower(defaultTitleUntitled)
}

// generateTitleFromPrompt derives a concise title from the prompt.
func (s *ChatService) generateTitleFromPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ""
	}
	toks := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.titleLocaleOrDefault())
	out := make([]string, 0, 8)
	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a title to the configured maximum rune length.
func (s *ChatService) clipTitle(title string) string {
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		return string([]rune(title)[:max])
	}
	return title
}

// titleLocaleOrDefault returns the configured locale for casing, or English.
func (s *ChatService) titleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// Extract Unicode letters with optional trailing numbers (e.g., "clause7").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
