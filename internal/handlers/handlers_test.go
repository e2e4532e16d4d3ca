package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/library-assistant/internal/assistant"
	"github.com/lehigh-university-libraries/library-assistant/internal/config"
	"github.com/lehigh-university-libraries/library-assistant/internal/document"
	"github.com/lehigh-university-libraries/library-assistant/internal/models"
	"github.com/lehigh-university-libraries/library-assistant/internal/providers"
	"github.com/lehigh-university-libraries/library-assistant/internal/storage"
	"github.com/lehigh-university-libraries/library-assistant/internal/workspace"
)

type stubChat struct {
	provider *stubProvider
}

func (c *stubChat) Send(ctx context.Context, prompt string) (string, error) {
	p := c.provider
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	block := p.block
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return p.reply, nil
}

func (c *stubChat) Close() error { return nil }

type stubProvider struct {
	mu      sync.Mutex
	reply   string
	block   bool
	started []document.Document
	prompts []string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) StartChat(ctx context.Context, config providers.Config, doc document.Document) (providers.Chat, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, doc)
	return &stubChat{provider: p}, nil
}

func (p *stubProvider) setBlock(block bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.block = block
}

// calls returns copies of the started documents and sent prompts.
func (p *stubProvider) calls() ([]document.Document, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]document.Document(nil), p.started...), append([]string(nil), p.prompts...)
}

type testServer struct {
	*httptest.Server
	provider *stubProvider
	store    *storage.SessionStore
}

func newTestServer(t *testing.T, timeout time.Duration, opts ...workspace.Option) *testServer {
	t.Helper()
	ws, err := workspace.New(t.TempDir(), opts...)
	if err != nil {
		t.Fatal(err)
	}
	store := storage.New(10, time.Hour)
	t.Cleanup(store.Close)

	p := &stubProvider{reply: "| Title | Genre |\n|---|---|\n| Gone Girl | Mystery |"}
	extract := func(path string) (string, error) {
		data, err := os.ReadFile(path)
		return string(data), err
	}
	svc := assistant.NewService(p, providers.Config{Model: "gpt-4"},
		assistant.WithTimeout(timeout),
		assistant.WithExtractors(extract, extract),
	)

	h := New(config.Default(), ws, store, svc)
	server := httptest.NewServer(h.Routes(nil))
	t.Cleanup(server.Close)

	return &testServer{Server: server, provider: p, store: store}
}

func (s *testServer) upload(t *testing.T, fileName, content, sessionID string) (*http.Response, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if sessionID != "" {
		if err := mw.WriteField("session_id", sessionID); err != nil {
			t.Fatal(err)
		}
	}
	mw.Close()

	resp, err := http.Post(s.URL+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var data map[string]any
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			t.Fatal(err)
		}
	}
	return resp, data
}

func (s *testServer) recommend(t *testing.T, sessionID, genre string) (int, models.RecommendationResult, string) {
	t.Helper()
	payload, _ := json.Marshal(models.RecommendationRequest{SessionID: sessionID, Genre: genre})
	resp, err := http.Post(s.URL+"/api/recommend", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var result models.RecommendationResult
	if resp.StatusCode != http.StatusOK {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return resp.StatusCode, result, buf.String()
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, result, ""
}

func (s *testServer) documentPath(t *testing.T, sessionID string) string {
	t.Helper()
	session, _, ok := s.store.Get(sessionID)
	if !ok || session.Document == nil {
		t.Fatalf("Expected session %s with a document", sessionID)
	}
	return session.Document.Path
}

func TestUploadAndRecommend(t *testing.T) {
	s := newTestServer(t, time.Minute)

	resp, data := s.upload(t, "catalog.pdf", "Gone Girl - Mystery", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if data["message"] != "File successfully saved" {
		t.Errorf("Unexpected message %v", data["message"])
	}
	sessionID, _ := data["session_id"].(string)
	if sessionID == "" {
		t.Fatal("Expected session id")
	}

	code, result, _ := s.recommend(t, sessionID, "mystery")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if result.Recommendation != s.provider.reply {
		t.Errorf("Expected reply unmodified, got %q", result.Recommendation)
	}
	if !strings.Contains(result.HTML, "<table>") {
		t.Errorf("Expected rendered table, got %s", result.HTML)
	}
	started, prompts := s.provider.calls()
	if len(started) != 1 || started[0].Kind != document.PDF {
		t.Fatalf("Expected one PDF chat, got %+v", started)
	}
	if !strings.Contains(prompts[0], "mystery") {
		t.Errorf("Expected prompt with genre, got %s", prompts[0])
	}

	// Same document and genre again is a second, independent request.
	if code, _, _ := s.recommend(t, sessionID, "mystery"); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	started, prompts = s.provider.calls()
	if len(started) != 2 || len(prompts) != 2 {
		t.Errorf("Expected two chats and two prompts, got %d and %d", len(started), len(prompts))
	}
}

func TestUploadReplacesDocument(t *testing.T) {
	s := newTestServer(t, time.Minute)

	_, first := s.upload(t, "first.pdf", "one", "")
	sessionID := first["session_id"].(string)
	_, second := s.upload(t, "second.docx", "two", sessionID)
	if second["session_id"] != sessionID {
		t.Fatalf("Expected session to be reused, got %v", second["session_id"])
	}

	_, area, _ := s.store.Get(sessionID)
	entries, err := os.ReadDir(area.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "second.docx" {
		t.Errorf("Expected only second.docx, got %v", entries)
	}

	if code, _, _ := s.recommend(t, sessionID, "fantasy"); code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	started, _ := s.provider.calls()
	if started[0].Kind != document.DOCX {
		t.Errorf("Expected DOCX chat for the newest upload, got %s", started[0].Kind)
	}
}

func TestUploadReportsCleanupWarnings(t *testing.T) {
	s := newTestServer(t, time.Minute, workspace.WithRemover(func(path string) error {
		if strings.HasSuffix(path, "first.pdf") {
			return errors.New("file is locked")
		}
		return os.RemoveAll(path)
	}))

	_, first := s.upload(t, "first.pdf", "one", "")
	sessionID := first["session_id"].(string)
	if _, ok := first["warnings"]; ok {
		t.Errorf("Expected no warnings on a clean upload, got %v", first["warnings"])
	}

	resp, second := s.upload(t, "second.pdf", "two", sessionID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected the upload to succeed, got %d", resp.StatusCode)
	}
	if second["message"] != "File successfully saved" {
		t.Errorf("Unexpected message %v", second["message"])
	}
	warnings, _ := second["warnings"].([]any)
	if len(warnings) != 1 || !strings.Contains(warnings[0].(string), "file is locked") {
		t.Errorf("Expected cleanup warning, got %v", second["warnings"])
	}

	got, err := os.ReadFile(s.documentPath(t, sessionID))
	if err != nil || string(got) != "two" {
		t.Errorf("Expected the new document to be recorded, got %q (%v)", got, err)
	}
}

func TestUploadToEndedSession(t *testing.T) {
	s := newTestServer(t, time.Minute)

	_, first := s.upload(t, "first.pdf", "one", "")
	sessionID := first["session_id"].(string)
	_, area, _ := s.store.Get(sessionID)
	if err := area.Destroy(); err != nil {
		t.Fatal(err)
	}

	resp, _ := s.upload(t, "second.pdf", "two", sessionID)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409, got %d", resp.StatusCode)
	}
	if _, err := os.Stat(area.Dir()); !os.IsNotExist(err) {
		t.Errorf("Expected no files written for an ended session, got %v", err)
	}
}

func TestRecommendUnsupportedType(t *testing.T) {
	s := newTestServer(t, time.Minute)

	resp, data := s.upload(t, "catalog.txt", "plain list", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected upload to be accepted, got %d", resp.StatusCode)
	}

	code, _, body := s.recommend(t, data["session_id"].(string), "mystery")
	if code != http.StatusUnsupportedMediaType {
		t.Errorf("Expected 415, got %d", code)
	}
	if !strings.Contains(body, "only PDF and DOCX") {
		t.Errorf("Expected unsupported type message, got %q", body)
	}
	if started, prompts := s.provider.calls(); len(started) != 0 || len(prompts) != 0 {
		t.Error("Expected no chat and no remote call")
	}
}

func TestRecommendTimeoutLeavesDocument(t *testing.T) {
	s := newTestServer(t, 20*time.Millisecond)
	s.provider.setBlock(true)

	_, data := s.upload(t, "catalog.pdf", "Dracula - Horror", "")
	sessionID := data["session_id"].(string)
	path := s.documentPath(t, sessionID)

	code, _, _ := s.recommend(t, sessionID, "horror")
	if code != http.StatusGatewayTimeout {
		t.Fatalf("Expected 504, got %d", code)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected document to remain, got %v", err)
	}
	if string(got) != "Dracula - Horror" {
		t.Errorf("Expected document unchanged, got %q", got)
	}

	// The page stays usable for a retry.
	s.provider.setBlock(false)
	if code, _, _ := s.recommend(t, sessionID, "horror"); code != http.StatusOK {
		t.Errorf("Expected retry to succeed, got %d", code)
	}
}

func TestRecommendEmptyGenre(t *testing.T) {
	s := newTestServer(t, time.Minute)
	_, data := s.upload(t, "catalog.pdf", "list", "")

	code, result, _ := s.recommend(t, data["session_id"].(string), "")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	_, prompts := s.provider.calls()
	if result.Genre != "" || prompts[0] != assistant.BuildPrompt("") {
		t.Error("Expected empty genre to be sent verbatim")
	}
}

func TestRecommendErrors(t *testing.T) {
	s := newTestServer(t, time.Minute)

	t.Run("unknown session", func(t *testing.T) {
		if code, _, _ := s.recommend(t, "nope", "mystery"); code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", code)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		resp, err := http.Post(s.URL+"/api/recommend", "application/json", strings.NewReader("{"))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(s.URL + "/api/recommend")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", resp.StatusCode)
		}
	})
}

func TestSessionDetailAndDelete(t *testing.T) {
	s := newTestServer(t, time.Minute)
	_, data := s.upload(t, "catalog.pdf", "list", "")
	sessionID := data["session_id"].(string)
	_, area, _ := s.store.Get(sessionID)

	resp, err := http.Get(s.URL + "/api/sessions/" + sessionID)
	if err != nil {
		t.Fatal(err)
	}
	var session models.Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if session.Document == nil || session.Document.FileName != "catalog.pdf" || session.Document.Extension != ".pdf" {
		t.Errorf("Unexpected session detail %+v", session.Document)
	}
	if session.Provider != "stub" || session.Model != "gpt-4" {
		t.Errorf("Unexpected provider/model %s/%s", session.Provider, session.Model)
	}

	req, _ := http.NewRequest(http.MethodDelete, s.URL+"/api/sessions/"+sessionID, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
	if _, err := os.Stat(area.Dir()); !os.IsNotExist(err) {
		t.Errorf("Expected session directory removed, got %v", err)
	}
	if code, _, _ := s.recommend(t, sessionID, "mystery"); code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", code)
	}
}

func TestIndexAndStatic(t *testing.T) {
	s := newTestServer(t, time.Minute)

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{path: "/", status: http.StatusOK, contains: "Get Recommendation"},
		{path: "/", status: http.StatusOK, contains: "https://openlibrary.org/"},
		{path: "/", status: http.StatusOK, contains: `accept=".pdf,.docx`},
		{path: "/static/logo.svg", status: http.StatusOK, contains: "<svg"},
		{path: "/healthcheck", status: http.StatusOK, contains: "OK"},
		{path: "/missing", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(s.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
			var buf bytes.Buffer
			_, _ = buf.ReadFrom(resp.Body)
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("Expected body to contain %q", tt.contains)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{err: document.ErrUnsupportedFileType, code: http.StatusUnsupportedMediaType},
		{err: context.DeadlineExceeded, code: http.StatusGatewayTimeout},
		{err: providers.ErrMissingAPIKey, code: http.StatusServiceUnavailable},
		{err: errors.New("quota exceeded"), code: http.StatusBadGateway},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.code {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.code, got)
		}
	}
}
