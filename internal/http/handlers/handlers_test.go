package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/legaluplift/go-legal-backend/internal/domain"
	"github.com/legaluplift/go-legal-backend/internal/services"
)

// ----- Fake services -----

type fakeDocSvc struct {
	submitErr error
	getErr    error
	notesErr  error

	// capture
	submitTitle string
	submitText  string
	notesValue  string

	doc   *domain.Document
	items []domain.Document
	total int64
}

func (f *fakeDocSvc) Submit(_ context.Context, userID, title, category, fileID, originalText string) (*domain.Document, error) {
	f.submitTitle, f.submitText = title, originalText
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &domain.Document{ID: "11111111-1111-1111-1111-111111111111", UserID: userID, Title: title, Category: category, FileID: fileID, Status: domain.StatusUploaded}, nil
}

func (f *fakeDocSvc) Get(_ context.Context, _, _ string) (*domain.Document, error) {
	return f.doc, f.getErr
}

func (f *fakeDocSvc) ListPage(_ context.Context, _ string, _, _ int) ([]domain.Document, int64, error) {
	return f.items, f.total, nil
}

func (f *fakeDocSvc) UpdateNotes(_ context.Context, _, _, notes string) error {
	f.notesValue = notes
	return f.notesErr
}

type fakeChatSvc struct {
	createErr error
	sendErr   error
	listErr   error

	sendContent string

	sess  *domain.ChatSession
	msg   *domain.ChatMessage
	msgs  []domain.ChatMessage
	total int64
}

func (f *fakeChatSvc) Create(_ context.Context, userID, title string, documentID *string) (*domain.ChatSession, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.sess != nil {
		return f.sess, nil
	}
	return &domain.ChatSession{ID: "22222222-2222-2222-2222-222222222222", UserID: userID, Title: title, DocumentID: documentID}, nil
}

func (f *fakeChatSvc) ListPage(_ context.Context, _ string, _, _ int) ([]domain.ChatSession, int64, error) {
	return []domain.ChatSession{}, f.total, nil
}

func (f *fakeChatSvc) ListMessagesPage(_ context.Context, _, _ string, _, _ int) ([]domain.ChatMessage, int64, error) {
	return f.msgs, f.total, f.listErr
}

func (f *fakeChatSvc) Send(_ context.Context, _, sessionID, content string) (*domain.ChatMessage, error) {
	f.sendContent = content
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &domain.ChatMessage{ID: "33333333-3333-3333-3333-333333333333", SessionID: sessionID, Role: domain.RoleUser, Content: content}, nil
}

type fakeProfileSvc struct {
	profile   *domain.UserProfile
	getErr    error
	upsertErr error
}

func (f *fakeProfileSvc) Get(_ context.Context, _ string) (*domain.UserProfile, error) {
	return f.profile, f.getErr
}

func (f *fakeProfileSvc) Upsert(_ context.Context, userID, category, theme string, notifications bool) (*domain.UserProfile, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return &domain.UserProfile{ID: "p1", UserID: userID, Category: category, Theme: theme, Notifications: notifications}, nil
}

// ----- Harness -----

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/documents", h.UploadDocument)
	r.GET("/documents", h.ListDocuments)
	r.GET("/documents/:id", h.GetDocument)
	r.PUT("/documents/:id/notes", h.UpdateNotes)
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions", h.ListSessions)
	r.GET("/sessions/:id/messages", h.ListMessages)
	r.POST("/sessions/:id/messages", h.SendMessage)
	r.GET("/profile", h.GetProfile)
	r.PUT("/profile", h.SaveProfile)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, w.Body.String())
	}
	return resp.Code
}

const docID = "11111111-1111-1111-1111-111111111111"
const sessID = "22222222-2222-2222-2222-222222222222"

// ----- Document endpoints -----

func TestUploadDocument(t *testing.T) {
	doc := &fakeDocSvc{}
	r := newTestRouter(New(doc, &fakeChatSvc{}, &fakeProfileSvc{}))

	valid := UploadDocumentRequest{Title: "Lease", Category: "citizen", FileID: "f1", OriginalText: "text"}

	w := doJSON(t, r, http.MethodPost, "/documents", "", valid)
	if w.Code != http.StatusUnauthorized || errCode(t, w) != ErrCodeUnauthorized {
		t.Fatalf("no identity: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/documents", "u1", map[string]string{"title": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/documents", "u1", valid)
	if w.Code != http.StatusCreated {
		t.Fatalf("happy path: %d %s", w.Code, w.Body.String())
	}
	var got domain.Document
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != domain.StatusUploaded || got.UserID != "u1" {
		t.Fatalf("response document = %+v", got)
	}

	doc.submitErr = services.ErrInvalidCategory
	// Binding rejects bad enum values before the service sees them, so drive
	// the service error branch with a well-formed payload.
	w = doJSON(t, r, http.MethodPost, "/documents", "u1", valid)
	if w.Code != http.StatusBadRequest || errCode(t, w) != ErrCodeBadRequest {
		t.Fatalf("service validation error: %d %s", w.Code, w.Body.String())
	}

	doc.submitErr = errors.New("db down")
	w = doJSON(t, r, http.MethodPost, "/documents", "u1", valid)
	if w.Code != http.StatusInternalServerError || errCode(t, w) != ErrCodeUploadFailed {
		t.Fatalf("store error: %d %s", w.Code, w.Body.String())
	}
}

func TestGetDocument(t *testing.T) {
	doc := &fakeDocSvc{doc: &domain.Document{ID: docID, UserID: "u1"}}
	r := newTestRouter(New(doc, &fakeChatSvc{}, &fakeProfileSvc{}))

	w := doJSON(t, r, http.MethodGet, "/documents/not-a-uuid", "u1", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/documents/"+docID, "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("happy path: %d %s", w.Code, w.Body.String())
	}

	doc.getErr = services.ErrDocumentNotFound
	w = doJSON(t, r, http.MethodGet, "/documents/"+docID, "u1", nil)
	if w.Code != http.StatusNotFound || errCode(t, w) != ErrCodeNotFound {
		t.Fatalf("missing: %d %s", w.Code, w.Body.String())
	}
}

func TestListDocuments_PaginationEnvelope(t *testing.T) {
	doc := &fakeDocSvc{items: []domain.Document{{ID: docID}}, total: 41}
	r := newTestRouter(New(doc, &fakeChatSvc{}, &fakeProfileSvc{}))

	w := doJSON(t, r, http.MethodGet, "/documents?page=2&page_size=20", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	var resp ListDocumentsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := resp.Pagination
	if p.Page != 2 || p.PageSize != 20 || p.Total != 41 || p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("pagination = %+v", p)
	}
}

func TestUpdateNotes(t *testing.T) {
	doc := &fakeDocSvc{}
	r := newTestRouter(New(doc, &fakeChatSvc{}, &fakeProfileSvc{}))

	w := doJSON(t, r, http.MethodPut, "/documents/"+docID+"/notes", "u1", UpdateNotesRequest{Notes: "  check clause 7  "})
	if w.Code != http.StatusNoContent {
		t.Fatalf("happy path: %d %s", w.Code, w.Body.String())
	}
	if doc.notesValue != "check clause 7" {
		t.Fatalf("notes not trimmed: %q", doc.notesValue)
	}

	doc.notesErr = services.ErrDocumentNotFound
	w = doJSON(t, r, http.MethodPut, "/documents/"+docID+"/notes", "u1", UpdateNotesRequest{Notes: "n"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing document: %d", w.Code)
	}
}

// ----- Chat endpoints -----

func TestCreateSession(t *testing.T) {
	chat := &fakeChatSvc{}
	r := newTestRouter(New(&fakeDocSvc{}, chat, &fakeProfileSvc{}))

	w := doJSON(t, r, http.MethodPost, "/sessions", "u1", CreateSessionRequest{Title: "Lease chat"})
	if w.Code != http.StatusCreated {
		t.Fatalf("happy path: %d %s", w.Code, w.Body.String())
	}

	bad := "not-a-uuid"
	w = doJSON(t, r, http.MethodPost, "/sessions", "u1", CreateSessionRequest{DocumentID: &bad})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad document id: %d", w.Code)
	}

	chat.createErr = services.ErrDocumentNotFound
	w = doJSON(t, r, http.MethodPost, "/sessions", "u1", CreateSessionRequest{Title: "t", DocumentID: strPtr(docID)})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing linked document: %d", w.Code)
	}
}

func TestListMessages(t *testing.T) {
	chat := &fakeChatSvc{msgs: []domain.ChatMessage{{ID: "m1", Role: domain.RoleUser}}, total: 1}
	r := newTestRouter(New(&fakeDocSvc{}, chat, &fakeProfileSvc{}))

	w := doJSON(t, r, http.MethodGet, "/sessions/nope/messages", "u1", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/sessions/"+sessID+"/messages", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("happy path: %d %s", w.Code, w.Body.String())
	}
	var resp ListMessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Pagination.Total != 1 {
		t.Fatalf("response = %+v", resp)
	}

	chat.listErr = services.ErrSessionNotFound
	w = doJSON(t, r, http.MethodGet, "/sessions/"+sessID+"/messages", "u1", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign session: %d", w.Code)
	}
}

func TestSendMessage(t *testing.T) {
	chat := &fakeChatSvc{}
	r := newTestRouter(New(&fakeDocSvc{}, chat, &fakeProfileSvc{}))

	w := doJSON(t, r, http.MethodPost, "/sessions/"+sessID+"/messages", "u1", SendMessageRequest{Content: "Hello\r\nthere\n\n\n\nagain"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("happy path: %d %s", w.Code, w.Body.String())
	}
	if chat.sendContent != "Hello\nthere\n\nagain" {
		t.Fatalf("content not sanitized: %q", chat.sendContent)
	}
	var resp SendMessageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message == nil || resp.Message.Role != domain.RoleUser {
		t.Fatalf("response = %+v", resp)
	}

	w = doJSON(t, r, http.MethodPost, "/sessions/"+sessID+"/messages", "u1", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing content: %d", w.Code)
	}

	cases := map[string]struct {
		err  error
		code int
	}{
		"empty prompt":  {services.ErrEmptyPrompt, http.StatusBadRequest},
		"too long":      {services.ErrTooLong, http.StatusBadRequest},
		"missing":       {services.ErrSessionNotFound, http.StatusNotFound},
		"backend error": {errors.New("db down"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		chat.sendErr = tc.err
		w = doJSON(t, r, http.MethodPost, "/sessions/"+sessID+"/messages", "u1", SendMessageRequest{Content: "hi"})
		if w.Code != tc.code {
			t.Errorf("%s: status = %d, want %d", name, w.Code, tc.code)
		}
	}
}

// ----- Profile endpoints -----

func TestGetProfile(t *testing.T) {
	prof := &fakeProfileSvc{}
	r := newTestRouter(New(&fakeDocSvc{}, &fakeChatSvc{}, prof))

	w := doJSON(t, r, http.MethodGet, "/profile", "u1", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("absent profile: %d %s", w.Code, w.Body.String())
	}

	prof.profile = &domain.UserProfile{ID: "p1", UserID: "u1", Category: "citizen", Theme: "dark"}
	w = doJSON(t, r, http.MethodGet, "/profile", "u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("present profile: %d", w.Code)
	}
	var got domain.UserProfile
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Theme != "dark" {
		t.Fatalf("profile = %+v", got)
	}
}

func TestSaveProfile(t *testing.T) {
	prof := &fakeProfileSvc{}
	r := newTestRouter(New(&fakeDocSvc{}, &fakeChatSvc{}, prof))

	w := doJSON(t, r, http.MethodPut, "/profile", "u1", SaveProfileRequest{Category: "citizen", Theme: "light", Notifications: true})
	if w.Code != http.StatusOK {
		t.Fatalf("happy path: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPut, "/profile", "u1", map[string]any{"category": "citizen", "theme": "solarized"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad theme: %d", w.Code)
	}

	prof.upsertErr = services.ErrInvalidCategory
	w = doJSON(t, r, http.MethodPut, "/profile", "u1", SaveProfileRequest{Category: "citizen", Theme: "light"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("service validation: %d", w.Code)
	}
}

// ----- Helpers -----

func TestPaginationFor(t *testing.T) {
	p := paginationFor(1, 20, 0)
	if p.TotalPages != 0 || p.HasNext {
		t.Fatalf("empty: %+v", p)
	}
	p = paginationFor(2, 10, 21)
	if p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("middle page: %+v", p)
	}
	p = paginationFor(3, 10, 21)
	if p.HasNext {
		t.Fatalf("last page: %+v", p)
	}
}

func TestSanitizeContent(t *testing.T) {
	cases := map[string]string{
		"plain":              "plain",
		"a\r\nb":             "a\nb",
		"a\n\n\n\n\nb":       "a\n\nb",
		"  padded  ":         "padded",
		"\r\n\r\n":           "",
		"keep\n\nparagraphs": "keep\n\nparagraphs",
	}
	for in, want := range cases {
		if got := sanitizeContent(in); got != want {
			t.Errorf("sanitizeContent(%q) = %q; want %q", in, got, want)
		}
	}
}

func strPtr(s string) *string { return &s }
