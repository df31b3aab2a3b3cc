package domain

import "time"

// ClickEvent is one resolution of a short link or scan of a QR code.
// Exactly one of URLID and QRCodeID is set. Events are append-only.
type ClickEvent struct {
	ID        string    `json:"id"`
	URLID     *string   `json:"url_id"`
	QRCodeID  *string   `json:"qr_code_id"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
}

// Visitor carries the best-effort request metadata recorded with an event
type Visitor struct {
	IP        string
	UserAgent string
}

// LinkStats represents aggregated statistics for a link
type LinkStats struct {
	TotalClicks int64            `json:"total_clicks"`
	DailyClicks []DailyClick     `json:"daily_clicks"` // timeline, newest first
	Browsers    map[string]int64 `json:"browsers"`
	Platforms   map[string]int64 `json:"platforms"`
	Devices     map[string]int64 `json:"devices"`
}

type DailyClick struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// AgentCount is the number of events recorded with one raw user agent string
type AgentCount struct {
	UserAgent string
	Count     int64
}

// Summary holds per-user totals shown on the dashboard
type Summary struct {
	QRCodes     int64 `json:"qr_codes"`
	ShortLinks  int64 `json:"short_links"`
	TotalScans  int64 `json:"total_scans"`
	TotalClicks int64 `json:"total_clicks"`
}

// Activity is one entry of the merged dashboard feed
type Activity struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // qr_code | short_url
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ShortURL  string    `json:"short_url,omitempty"`
	Scans     *int64    `json:"scans,omitempty"`
	Clicks    *int64    `json:"clicks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	QRColor   string    `json:"qr_color,omitempty"`
	BGColor   string    `json:"bg_color,omitempty"`
}

// FeatureTrial is a persisted per-user counter for a premium feature trial
type FeatureTrial struct {
	UserID     string `json:"user_id"`
	Feature    string `json:"feature"`
	TrialCount int    `json:"trial_count"`
	MaxTrials  int    `json:"max_trials"`
}

func (f FeatureTrial) Remaining() int {
	if f.TrialCount >= f.MaxTrials {
		return 0
	}
	return f.MaxTrials - f.TrialCount
}
