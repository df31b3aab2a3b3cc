package handler

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
)

type HTTPHandler struct {
	service       ports.LinkService
	redirectDelay time.Duration
}

func NewHTTPHandler(service ports.LinkService, redirectDelay time.Duration) *HTTPHandler {
	return &HTTPHandler{service: service, redirectDelay: redirectDelay}
}

// ShortenRequest payload
type ShortenRequest struct {
	URL         string `json:"url" validate:"required"`
	CustomAlias string `json:"customAlias,omitempty" validate:"omitempty,max=64"`
	Title       string `json:"title,omitempty" validate:"max=255"`
	Description string `json:"description,omitempty"`
}

// ShortenResponse payload
type ShortenResponse struct {
	ShortURL    string `json:"shortUrl"`
	ShortCode   string `json:"shortCode"`
	OriginalURL string `json:"originalUrl"`
	ID          string `json:"id"`
}

// Shorten creates a short link
func (h *HTTPHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req ShortenRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err, "Failed to create short URL")
		return
	}

	link, shortURL, err := h.service.Shorten(r.Context(), ports.ShortenInput{
		URL:         req.URL,
		CustomAlias: req.CustomAlias,
		Title:       req.Title,
		Description: req.Description,
		UserID:      userIDPtr(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to create short URL")
		return
	}

	writeJSON(w, http.StatusOK, ShortenResponse{
		ShortURL:    shortURL,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		ID:          link.ID,
	})
}

// Redirect to original URL
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")
	if code == "" {
		http.Error(w, "Short code not provided", http.StatusBadRequest)
		return
	}

	originalURL, err := h.service.Resolve(r.Context(), code, visitorFrom(r))
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "Short URL not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("short_code", code).Msg("redirect failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Stored destinations are sent as-is; http.Redirect would rewrite scheme-less values
	// into paths on this host.
	w.Header().Set("Location", originalURL)
	w.WriteHeader(http.StatusFound)
}

var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{if .Error}}Link not found{{else}}Redirecting...{{end}}</title>
</head>
<body>
{{if .Error}}
<h2>{{.Error}}</h2>
<p>The link may have been removed or never existed.</p>
{{else if .Navigate}}
<h2>Redirecting...</h2>
<p>You are being redirected to <a href="{{.URL}}">{{.URL}}</a></p>
<script>setTimeout(function () { window.location.href = {{.URL}}; }, {{.DelayMillis}});</script>
{{else}}
<h2>External destination</h2>
<p>This link points to a destination that cannot be opened automatically:</p>
<pre>{{.URL}}</pre>
{{end}}
</body>
</html>
`))

type redirectPageData struct {
	URL         string
	Error       string
	Navigate    bool
	DelayMillis int64
}

// navigable reports whether dest may be followed from a script on this origin.
func navigable(dest string) bool {
	u, err := url.Parse(dest)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// RedirectPage is the browser-facing variant: it shows the destination for a short
// delay before navigating.
func (h *HTTPHandler) RedirectPage(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")
	data := redirectPageData{DelayMillis: h.redirectDelay.Milliseconds()}

	status := http.StatusOK
	originalURL, err := h.service.Resolve(r.Context(), code, visitorFrom(r))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		data.Error = "Short URL not found"
	case err != nil:
		log.Error().Err(err).Str("short_code", code).Msg("redirect page failed")
		status = http.StatusInternalServerError
		data.Error = "Something went wrong"
	default:
		data.URL = originalURL
		data.Navigate = navigable(originalURL)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := redirectPage.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("render redirect page")
	}
}

// Stats for one of the caller's links
func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.LinkStats(r.Context(), UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to load link stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
