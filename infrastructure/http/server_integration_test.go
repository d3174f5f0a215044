package http

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/uptrace/bun"

	"costdesk/frontend/documents"
	"costdesk/frontend/login"
	"costdesk/infrastructure/audit"
	"costdesk/infrastructure/cache"
	"costdesk/infrastructure/ledger"
	"costdesk/infrastructure/rbac"
	"costdesk/infrastructure/sqlite"
)

type integrationEnv struct {
	server *httptest.Server
	db     *sqlite.DB
}

func setupIntegrationServer(t *testing.T) (*integrationEnv, *http.Client) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "server-integration.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "..", "sqlite", "migrations")
	if err := sqlite.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if err := login.UpsertUserPasswordHash(context.Background(), db, "admin", "admin", "Admin123!CostDesk"); err != nil {
		t.Fatalf("seed admin user: %v", err)
	}
	if err := login.UpsertUserPasswordHash(context.Background(), db, "viewer1", "viewer", "Viewer123!CostDesk"); err != nil {
		t.Fatalf("seed viewer user: %v", err)
	}
	if err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO cost_centers (code, name, kind, active) VALUES ('JOB1', 'Job one', 'job', 1)`)
		return err
	}); err != nil {
		t.Fatalf("seed cost center: %v", err)
	}

	sessionCache := cache.NewUserSessionCache()
	userCache := cache.NewUserCache()
	rbacCache := cache.NewRbacRolesCache()
	rbacSvc := rbac.New(rbacCache)
	auditSvc := audit.NewService()
	editors := documents.NewEditorRegistry()

	s := NewServer("127.0.0.1:0", db, sessionCache, userCache, rbacSvc, rbacCache, auditSvc, editors, ledger.NewLocalPoster())
	ts := httptest.NewServer(s.router)
	env := &integrationEnv{server: ts, db: db}
	t.Cleanup(func() {
		env.server.Close()
		_ = env.db.Close()
	})

	return env, newHTTPClient(t)
}

func newHTTPClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postForm(t *testing.T, client *http.Client, baseURL, path string, data url.Values) *http.Response {
	t.Helper()
	if data == nil {
		data = url.Values{}
	}
	if token := csrfToken(t, client, baseURL); token != "" {
		data.Set("_csrf", token)
	}
	resp, err := client.PostForm(baseURL+path, data)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func get(t *testing.T, client *http.Client, baseURL, path string) *http.Response {
	t.Helper()
	resp, err := client.Get(baseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	return resp
}

func csrfToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == "costdesk_csrf" {
			return c.Value
		}
	}
	return ""
}

func loginAs(t *testing.T, client *http.Client, baseURL, username, password string) {
	t.Helper()

	resp := get(t, client, baseURL, "/login")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected login page 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = postForm(t, client, baseURL, "/login", url.Values{
		"username": {username},
		"password": {password},
	})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected login 303, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Location"), "/desk/documents") {
		t.Fatalf("unexpected login redirect: %s", resp.Header.Get("Location"))
	}
	_ = resp.Body.Close()
}

// createDocument posts the new-document form and returns the editor path.
func createDocument(t *testing.T, client *http.Client, baseURL, docType string) string {
	t.Helper()
	resp := postForm(t, client, baseURL, "/desk/documents", url.Values{"doc_type": {docType}})
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected create 303, got %d", resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	_ = resp.Body.Close()
	if !strings.Contains(location, "/desk/documents/") {
		t.Fatalf("unexpected create redirect: %s", location)
	}
	return location
}

func documentSupplier(t *testing.T, db *sqlite.DB, docNumberPrefix string) string {
	t.Helper()
	var supplier string
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COALESCE(supplier, '') FROM documents WHERE doc_number LIKE ? ORDER BY id DESC LIMIT 1`, docNumberPrefix+"%").Scan(ctx, &supplier)
	})
	if err != nil {
		t.Fatalf("load supplier: %v", err)
	}
	return supplier
}

func countAuditActions(t *testing.T, db *sqlite.DB, action string) int64 {
	t.Helper()
	var count int64
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM audit_logs WHERE action = ?`, action).Scan(ctx, &count)
	})
	if err != nil {
		t.Fatalf("count audit actions: %v", err)
	}
	return count
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	env, client := setupIntegrationServer(t)

	resp := get(t, client, env.server.URL, "/desk/documents")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 to login, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Location"), "/login") {
		t.Fatalf("expected redirect to login, got %s", resp.Header.Get("Location"))
	}
}

func TestLoginAndDocumentsPage(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "admin", "Admin123!CostDesk")

	resp := get(t, client, env.server.URL, "/desk/documents")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected documents page 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "New document") {
		t.Fatalf("expected create form on documents page")
	}
}

func TestViewerCannotCreateDocuments(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "viewer1", "Viewer123!CostDesk")

	resp := postForm(t, client, env.server.URL, "/desk/documents", url.Values{"doc_type": {"purchase_order"}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected rbac denial 303, got %d", resp.StatusCode)
	}
	if !strings.Contains(resp.Header.Get("Location"), "/login") {
		t.Fatalf("expected denial redirect to login, got %s", resp.Header.Get("Location"))
	}
}

func TestEditAndFlushPersistsHeader(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "admin", "Admin123!CostDesk")

	editorPath := createDocument(t, client, env.server.URL, "purchase_order")

	// Opening the editor starts the server-side session.
	resp := get(t, client, env.server.URL, editorPath)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected editor page 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	apiPath := strings.Replace(editorPath, "/desk/documents/", "/desk/api/documents/", 1)
	resp = postForm(t, client, env.server.URL, apiPath+"/edit", url.Values{
		"field": {"supplier"},
		"value": {"Acme Fasteners"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected edit 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	resp = postForm(t, client, env.server.URL, apiPath+"/flush", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected flush 200, got %d", resp.StatusCode)
	}
	_ = resp.Body.Close()

	if got := documentSupplier(t, env.db, "PO-"); got != "Acme Fasteners" {
		t.Fatalf("expected flushed supplier, got %q", got)
	}
}

func TestEditWithoutEditorSessionIsConflict(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "admin", "Admin123!CostDesk")

	editorPath := createDocument(t, client, env.server.URL, "purchase_order")
	apiPath := strings.Replace(editorPath, "/desk/documents/", "/desk/api/documents/", 1)

	// No GET of the editor page first, so no live session exists.
	resp := postForm(t, client, env.server.URL, apiPath+"/edit", url.Values{
		"field": {"supplier"},
		"value": {"Acme"},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for expired editing session, got %d", resp.StatusCode)
	}
}

func TestExportDownloadIsAudited(t *testing.T) {
	env, client := setupIntegrationServer(t)
	loginAs(t, client, env.server.URL, "admin", "Admin123!CostDesk")

	resp := get(t, client, env.server.URL, "/desk/exports/document-status.csv")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status csv 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Fatalf("expected csv content type, got %s", ct)
	}
	if count := countAuditActions(t, env.db, "document.export"); count != 1 {
		t.Fatalf("expected one export audit entry, got %d", count)
	}
}

func TestSecurityHeadersPresent(t *testing.T) {
	env, client := setupIntegrationServer(t)

	resp := get(t, client, env.server.URL, "/login")
	defer resp.Body.Close()
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected nosniff header")
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Fatalf("expected frame deny header")
	}
}
