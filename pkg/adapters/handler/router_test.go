package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wadjakorntonsri/lnkzip/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/lnkzip/pkg/config"
	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/core/services"
)

const testBaseURL = "https://lnk.test"

func newTestRouter(t *testing.T) (http.Handler, *sqlite.SQLiteRepository) {
	t.Helper()
	repo, err := sqlite.NewSQLiteRepository("file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cfg := &config.Config{
		BaseURL:            testBaseURL,
		JWTSecret:          "router-secret",
		CORSAllowedOrigins: []string{"*"},
		TrackingTimeout:    5 * time.Second,
		RedirectDelay:      2 * time.Second,
	}
	links := services.NewLinkService(repo, cfg.BaseURL, cfg.TrackingTimeout)
	qrs := services.NewQRService(repo, links)
	dashboard := services.NewDashboardService(repo, links)
	features := services.NewFeatureService(repo, services.DefaultMaxTrials)
	return NewRouter(cfg, links, qrs, dashboard, features), repo
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPreflight(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/qr-codes", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("preflight status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("missing Access-Control-Allow-Origin")
	}
	if rr.Body.Len() != 0 {
		t.Errorf("preflight body = %q, want empty", rr.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)
	rr := doJSON(t, router, http.MethodGet, "/healthz", nil, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", rr.Code, rr.Body.String())
	}
}

func TestShortenAndRedirect(t *testing.T) {
	router, repo := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/shorten", map[string]string{
		"url":         "https://example.org",
		"customAlias": "promo1",
	}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("shorten status = %d: %s", rr.Code, rr.Body.String())
	}
	var created ShortenResponse
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.ShortURL != testBaseURL+"/promo1" {
		t.Errorf("shortUrl = %q", created.ShortURL)
	}

	rr = doJSON(t, router, http.MethodGet, "/promo1", nil, "")
	if rr.Code != http.StatusFound {
		t.Fatalf("redirect status = %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "https://example.org" {
		t.Errorf("Location = %q", loc)
	}

	link, err := repo.GetLinkByShortCode(t.Context(), "promo1")
	if err != nil || link == nil {
		t.Fatalf("lookup: %v", err)
	}
	if link.ClickCount != 1 {
		t.Errorf("click_count = %d, want 1", link.ClickCount)
	}
}

func TestShortenErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	if rr := doJSON(t, router, http.MethodPost, "/api/v1/shorten", map[string]string{"customAlias": "x"}, ""); rr.Code != http.StatusBadRequest {
		t.Errorf("missing url status = %d, want 400", rr.Code)
	}

	body := map[string]string{"url": "https://a.example", "customAlias": "taken"}
	if rr := doJSON(t, router, http.MethodPost, "/api/v1/shorten", body, ""); rr.Code != http.StatusOK {
		t.Fatalf("first shorten status = %d", rr.Code)
	}
	rr := doJSON(t, router, http.MethodPost, "/api/v1/shorten", body, "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("duplicate alias status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Custom alias already exists") {
		t.Errorf("duplicate alias body = %s", rr.Body.String())
	}
}

func TestRedirectErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name           string
		path           string
		expectedStatus int
		expectedBody   string
	}{
		{"Unknown Code", "/zzzzzz", http.StatusNotFound, "Short URL not found"},
		{"Empty Code", "/", http.StatusBadRequest, "Short code not provided"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodGet, tt.path, nil, "")
			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
			if !strings.Contains(rr.Body.String(), tt.expectedBody) {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.expectedBody)
			}
		})
	}
}

func TestRedirectPage(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/shorten", map[string]string{"url": "https://example.org/page", "customAlias": "page1"}, "")

	rr := doJSON(t, router, http.MethodGet, "/r/page1", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "https://example.org/page") || !strings.Contains(rr.Body.String(), "2000") {
		t.Errorf("page does not carry destination and delay: %s", rr.Body.String())
	}

	if rr := doJSON(t, router, http.MethodGet, "/r/missing", nil, ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing code status = %d, want 404", rr.Code)
	}
}

func TestRedirectPageOnlyScriptsWebDestinations(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name   string
		alias  string
		url    string
		script bool
	}{
		{"Https", "web1", "https://example.org/a", true},
		{"Javascript", "js1", "javascript:fetch('/api/v1/history').then(alert)", false},
		{"Mixed Case Javascript", "js2", "JavaScript:alert(1)", false},
		{"Data", "data1", "data:text/html,<script>alert(1)</script>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, router, http.MethodPost, "/api/v1/shorten", map[string]string{"url": tt.url, "customAlias": tt.alias}, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("shorten status = %d: %s", rr.Code, rr.Body.String())
			}

			rr = doJSON(t, router, http.MethodGet, "/r/"+tt.alias, nil, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			body := rr.Body.String()
			if got := strings.Contains(body, "<script>"); got != tt.script {
				t.Errorf("script present = %v, want %v: %s", got, tt.script, body)
			}
			if strings.Contains(strings.ToLower(body), `href="javascript:`) {
				t.Errorf("javascript destination linked: %s", body)
			}
		})
	}
}

func TestRedirectKeepsStoredLocation(t *testing.T) {
	router, _ := newTestRouter(t)
	doJSON(t, router, http.MethodPost, "/api/v1/shorten", map[string]string{"url": "www.example.org/a", "customAlias": "bare"}, "")

	rr := doJSON(t, router, http.MethodGet, "/bare", nil, "")
	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "www.example.org/a" {
		t.Errorf("Location = %q, want the stored value", loc)
	}
}

func TestBareOptions(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/v1/shorten", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
}

func TestCreateQRCode(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/qr-codes", map[string]any{
		"title":          "Promo",
		"qrType":         "url",
		"content":        "https://example.com",
		"createShortUrl": true,
	}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		QRCode   domain.QRCode `json:"qrCode"`
		ShortURL *string       `json:"shortUrl"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ShortURL == nil || !strings.HasPrefix(*resp.ShortURL, testBaseURL+"/") {
		t.Fatalf("shortUrl = %v", resp.ShortURL)
	}
	if resp.QRCode.Content != *resp.ShortURL {
		t.Errorf("content = %q, want the short url", resp.QRCode.Content)
	}
	if resp.QRCode.QRColor != domain.DefaultQRColor || resp.QRCode.Size != domain.DefaultSize {
		t.Errorf("defaults not applied: %+v", resp.QRCode)
	}

	rr = doJSON(t, router, http.MethodPost, "/api/v1/qr-codes/"+resp.QRCode.ID+"/scan", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("scan status = %d", rr.Code)
	}
	var scanned struct {
		QRCode domain.QRCode `json:"qrCode"`
	}
	json.NewDecoder(rr.Body).Decode(&scanned)
	if scanned.QRCode.ScanCount != 1 {
		t.Errorf("scan_count = %d, want 1", scanned.QRCode.ScanCount)
	}
}

func TestCreateQRCodeValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"Missing Title", map[string]any{"qrType": "text", "content": "hi"}},
		{"Unknown Type", map[string]any{"title": "t", "qrType": "fax", "content": "hi"}},
		{"Bad Color", map[string]any{"title": "t", "qrType": "text", "content": "hi", "qrColor": "blue"}},
		{"Bad Size", map[string]any{"title": "t", "qrType": "text", "content": "hi", "size": 300}},
		{"Bad Frame", map[string]any{"title": "t", "qrType": "text", "content": "hi", "frameStyle": "fancy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := doJSON(t, router, http.MethodPost, "/api/v1/qr-codes", tt.body, ""); rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}

func TestRenderQRCode(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/api/v1/qr-codes/render", map[string]any{
		"qrType":  "wifi",
		"content": "hunter2",
		"format":  "svg",
	}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "qr-code.svg") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "<svg") && !strings.HasPrefix(rr.Body.String(), "<?xml") {
		t.Errorf("unexpected body prefix: %.40s", rr.Body.String())
	}
}

func TestDashboardRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	token, err := IssueToken([]byte("router-secret"), "owner-1", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	doJSON(t, router, http.MethodPost, "/api/v1/shorten", map[string]string{"url": "https://example.org"}, token)
	doJSON(t, router, http.MethodPost, "/api/v1/qr-codes", map[string]any{"title": "Hi", "qrType": "text", "content": "hello"}, token)
	// anonymous rows must not show up for the owner
	doJSON(t, router, http.MethodPost, "/api/v1/shorten", map[string]string{"url": "https://other.example"}, "")

	rr := doJSON(t, router, http.MethodGet, "/api/v1/dashboard", nil, token)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rr.Code)
	}
	var summary domain.Summary
	json.NewDecoder(rr.Body).Decode(&summary)
	if summary.QRCodes != 1 || summary.ShortLinks != 1 {
		t.Errorf("summary = %+v", summary)
	}

	rr = doJSON(t, router, http.MethodGet, "/api/v1/activities", nil, token)
	var feed struct {
		Activities []domain.Activity `json:"activities"`
	}
	json.NewDecoder(rr.Body).Decode(&feed)
	if len(feed.Activities) != 2 {
		t.Errorf("activities = %d, want 2", len(feed.Activities))
	}

	for _, path := range []string{"/api/v1/dashboard", "/api/v1/history", "/api/v1/activities"} {
		if rr := doJSON(t, router, http.MethodGet, path, nil, ""); rr.Code != http.StatusUnauthorized {
			t.Errorf("%s anonymous status = %d, want 401", path, rr.Code)
		}
	}
}

func TestFeatureTrials(t *testing.T) {
	router, _ := newTestRouter(t)
	token, _ := IssueToken([]byte("router-secret"), "trial-user", time.Now().Add(time.Hour))

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusForbidden} {
		if rr := doJSON(t, router, http.MethodPost, "/api/v1/features/logo/use", nil, token); rr.Code != want {
			t.Errorf("use #%d status = %d, want %d", i+1, rr.Code, want)
		}
	}

	rr := doJSON(t, router, http.MethodGet, "/api/v1/features/logo", nil, token)
	var status FeatureResponse
	json.NewDecoder(rr.Body).Decode(&status)
	if status.Allowed || status.Remaining != 0 || status.Used != 2 {
		t.Errorf("status = %+v", status)
	}

	rr = doJSON(t, router, http.MethodGet, "/api/v1/features/logo", nil, "")
	json.NewDecoder(rr.Body).Decode(&status)
	if !status.Allowed {
		t.Error("anonymous visitors should be allowed to try")
	}
}
