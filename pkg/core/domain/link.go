package domain

import "time"

// ShortLink represents a shortened URL (stored in the urls table)
type ShortLink struct {
	ID          string     `json:"id"`
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	CustomAlias *string    `json:"custom_alias"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ClickCount  int64      `json:"click_count"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at"`
	UserID      *string    `json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Live reports whether the link may be resolved at the given instant.
func (l *ShortLink) Live(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	return l.ExpiresAt == nil || l.ExpiresAt.After(now)
}
