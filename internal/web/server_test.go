package web

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mmynk/familyfund/internal/auth"
	"github.com/mmynk/familyfund/internal/schedule"
	"github.com/mmynk/familyfund/internal/service"
	"github.com/mmynk/familyfund/internal/session"
	"github.com/mmynk/familyfund/internal/storage"
	"github.com/mmynk/familyfund/internal/storage/sqlite"
	"github.com/mmynk/familyfund/pkg/logging"
)

// setupServer wires the full stack over a temp SQLite database with CSRF
// disabled.
func setupServer(t *testing.T) http.Handler {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := logging.Discard()
	repo := storage.NewRepository(store, time.Minute, time.Minute)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	signer, err := session.NewSigner("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner failed: %v", err)
	}

	authenticator := auth.NewPasswordAuthenticator(repo, auth.NewHasher(4, ""))
	srv, err := NewServer(Deps{
		Auth:          service.NewAuthService(authenticator, jwtManager, auth.NewRoles(nil), logger),
		Contributions: service.NewContributionService(repo, schedule.Default(), service.DefaultMinAmount, nil, logger),
		Reports:       service.NewReportService(repo, schedule.Default(), logger),
		Signer:        signer,
		JWT:           jwtManager,
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return srv.Handler()
}

// client replays cookies between requests and never follows redirects.
type client struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, h: h, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (c *client) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// login signs in and returns the redirect target carrying the session token.
func (c *client) login(username, password string) *url.URL {
	c.t.Helper()
	rec := c.post("/login", url.Values{"username": {username}, "password": {password}})
	if rec.Code != http.StatusSeeOther {
		c.t.Fatalf("login status = %d, body: %s", rec.Code, rec.Body.String())
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		c.t.Fatalf("bad Location: %v", err)
	}
	return loc
}

func (c *client) signup(username, password string) {
	c.t.Helper()
	rec := c.post("/signup", url.Values{"username": {username}, "password": {password}})
	if rec.Code != http.StatusSeeOther {
		c.t.Fatalf("signup status = %d, body: %s", rec.Code, rec.Body.String())
	}
}

func TestMemberFlow(t *testing.T) {
	c := newClient(t, setupServer(t))

	// Unauthenticated visitors land on login
	if rec := c.get("/"); rec.Header().Get("Location") != "/login" {
		t.Fatalf("GET / Location = %q, want /login", rec.Header().Get("Location"))
	}

	c.signup("alice", "pw123")
	if rec := c.get("/login"); !strings.Contains(rec.Body.String(), "User created successfully.") {
		t.Errorf("login page should show the sign-up flash")
	}

	rec := c.post("/signup", url.Values{"username": {"Alice "}, "password": {"x"}})
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "Username already exists.") {
		t.Errorf("duplicate sign-up = %d", rec.Code)
	}

	rec = c.post("/login", url.Values{"username": {"alice"}, "password": {"nope"}})
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Invalid username or password.") {
		t.Errorf("bad login = %d", rec.Code)
	}

	dash := c.login("ALICE", "pw123")
	if dash.Path != "/dashboard" || dash.Query().Get(session.KeyUser) != "Alice" {
		t.Fatalf("login redirect = %s", dash)
	}
	token := dash.RawQuery

	rec = c.get("/dashboard?" + token)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Welcome, Alice") || !strings.Contains(body, "Logged in successfully!") {
		t.Errorf("dashboard missing greeting or flash")
	}

	// Members cannot reach admin pages
	if rec := c.get("/admin?" + token); !strings.HasPrefix(rec.Header().Get("Location"), "/dashboard?") {
		t.Errorf("member /admin Location = %q", rec.Header().Get("Location"))
	}

	rec = c.post("/submit?"+token, url.Values{"amount": {"500"}})
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "Amount must not be less than N1,000.") {
		t.Errorf("low amount = %d", rec.Code)
	}

	rec = c.post("/submit?"+token, url.Values{"amount": {"1,500"}, "week": {"6"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("submit status = %d, body: %s", rec.Code, rec.Body.String())
	}
	rec = c.get("/dashboard?" + token)
	if !strings.Contains(rec.Body.String(), "Saved Week 6 contribution: N1,500.00.") {
		t.Errorf("dashboard should show the submission flash")
	}

	rec = c.post("/submit?"+token, url.Values{"amount": {"1500"}, "week": {"6"}})
	if !strings.Contains(rec.Body.String(), "You already paid for Week 6.") {
		t.Errorf("resubmit should be rejected, got %d", rec.Code)
	}

	// Logout drops the token
	rec = c.post("/logout?"+token, nil)
	if rec.Header().Get("Location") != "/login" {
		t.Errorf("logout Location = %q", rec.Header().Get("Location"))
	}
}

func TestAdminPagesAndExports(t *testing.T) {
	c := newClient(t, setupServer(t))

	c.signup("bob", "pw")
	bob := c.login("bob", "pw").RawQuery
	if rec := c.post("/submit?"+bob, url.Values{"amount": {"2000"}}); rec.Code != http.StatusSeeOther {
		t.Fatalf("submit status = %d", rec.Code)
	}

	c.signup("admin", "root")
	loc := c.login("admin", "root")
	if loc.Path != "/admin" {
		t.Fatalf("admin login redirect = %s", loc)
	}
	token := loc.RawQuery

	// Admins are sent away from member pages
	if rec := c.get("/dashboard?" + token); !strings.HasPrefix(rec.Header().Get("Location"), "/admin?") {
		t.Errorf("admin /dashboard Location = %q", rec.Header().Get("Location"))
	}

	rec := c.get("/admin?refresh=1&" + token)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "N2,000.00") {
		t.Errorf("admin dashboard = %d", rec.Code)
	}
	if rec := c.get("/admin/review?member=bob&" + token); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Bob") {
		t.Errorf("review = %d", rec.Code)
	}

	tests := []struct {
		kind string
		want [][]string
	}{
		{"log", [][]string{{"NAME", "AMOUNT PAID", "DATE", "WEEK", "RECEIPT LINK"}}},
		{"missing", [][]string{{"NAME", "SUBMITTED", "MISSING", "MISSING WEEKS"}}},
		{"member-missing", [][]string{{"NAME", "WEEK"}, {"Bob", "week 7"}}},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rec := c.get("/admin/export/" + tt.kind + ".csv?member=Bob&" + token)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
				t.Errorf("Content-Type = %q", ct)
			}
			rows, err := csv.NewReader(rec.Body).ReadAll()
			if err != nil {
				t.Fatalf("bad CSV: %v", err)
			}
			if len(rows) < len(tt.want) {
				t.Fatalf("rows = %v", rows)
			}
			if diff := cmp.Diff(tt.want, rows[:len(tt.want)]); diff != "" {
				t.Errorf("CSV mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if rec := c.get("/admin/export/bogus.csv?" + token); rec.Code != http.StatusNotFound {
		t.Errorf("unknown export = %d, want 404", rec.Code)
	}
}

func TestAPI(t *testing.T) {
	h := setupServer(t)
	c := newClient(t, h)
	c.signup("carol", "pw")

	tokenFor := func(username, password string) (int, TokenResponse) {
		body, _ := json.Marshal(TokenRequest{Username: username, Password: password})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/token", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		var resp TokenResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		return rec.Code, resp
	}

	if code, _ := tokenFor("carol", "bad"); code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d", code)
	}
	code, resp := tokenFor("carol", "pw")
	if code != http.StatusOK || resp.Token == "" || resp.Role != "user" {
		t.Fatalf("token response = %d %+v", code, resp)
	}

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+resp.Token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/api/v1/me/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("me/summary status = %d", rec.Code)
	}
	var summary map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if summary["Username"] != "Carol" {
		t.Errorf("Username = %v", summary["Username"])
	}

	if rec := get("/api/v1/admin/summary"); rec.Code != http.StatusForbidden {
		t.Errorf("member admin/summary = %d, want 403", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := setupServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "familyfund_http_requests_total") {
		t.Errorf("metrics output missing request counter")
	}
}

func TestWithToken(t *testing.T) {
	token := url.Values{"u": {"Alice"}, "s": {"abc"}}
	tests := []struct {
		path  string
		token url.Values
		kv    []any
		want  string
	}{
		{"/dashboard", nil, nil, "/dashboard"},
		{"/dashboard", token, nil, "/dashboard?s=abc&u=Alice"},
		{"/admin/export/recent.csv", token, []any{"member", "Mary Ann", "week", 0}, "/admin/export/recent.csv?member=Mary+Ann&s=abc&u=Alice&week=0"},
	}
	for _, tt := range tests {
		if got := withToken(tt.path, tt.token, tt.kv...); got != tt.want {
			t.Errorf("withToken(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFlashCookieAttributes(t *testing.T) {
	s := &Server{Deps: Deps{Secure: true, Logger: logging.Discard()}}

	rec := httptest.NewRecorder()
	s.setFlash(rec, "Saved Week 9 contribution: N1,500.00.")
	set := rec.Result().Cookies()
	if len(set) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(set))
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(set[0])
	rec = httptest.NewRecorder()
	if got := s.popFlash(rec, req); got != "Saved Week 9 contribution: N1,500.00." {
		t.Errorf("popFlash = %q", got)
	}
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 {
		t.Fatalf("expected 1 clearing cookie, got %d", len(cleared))
	}

	for name, c := range map[string]*http.Cookie{"set": set[0], "cleared": cleared[0]} {
		t.Run(name, func(t *testing.T) {
			if c.Name != flashCookie || c.Path != "/" {
				t.Errorf("cookie = %s path %s", c.Name, c.Path)
			}
			if !c.Secure || !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
				t.Errorf("attributes: secure=%v httponly=%v samesite=%v", c.Secure, c.HttpOnly, c.SameSite)
			}
		})
	}
	if cleared[0].MaxAge >= 0 {
		t.Errorf("clearing cookie MaxAge = %d, want negative", cleared[0].MaxAge)
	}
}

func TestAttachmentFilename(t *testing.T) {
	tests := []string{
		"recent_submissions.csv",
		"mary_ann_missing_weeks.csv",
		`o"neil_missing_weeks.csv`,
		`back\\slash.csv`,
	}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			disposition, params, err := mime.ParseMediaType(attachment(name))
			if err != nil {
				t.Fatalf("ParseMediaType(%q) failed: %v", attachment(name), err)
			}
			if disposition != "attachment" {
				t.Errorf("disposition = %q", disposition)
			}
			if params["filename"] != name {
				t.Errorf("filename = %q, want %q", params["filename"], name)
			}
		})
	}
}
