package ports

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
)

// LinkRepository defines storage operations for short links
type LinkRepository interface {
	CreateLink(ctx context.Context, link *domain.ShortLink) error
	GetLinkByShortCode(ctx context.Context, code string) (*domain.ShortLink, error) // any state, for collision checks
	GetActiveLink(ctx context.Context, code string, now time.Time) (*domain.ShortLink, error)
	GetLinkByID(ctx context.Context, id string) (*domain.ShortLink, error)
	ListLinks(ctx context.Context, userID string, limit int) ([]domain.ShortLink, error)
	DeactivateLink(ctx context.Context, id string) error
	DumpLinks(ctx context.Context) ([]domain.ShortLink, error) // For migration

	// Stats
	RecordClick(ctx context.Context, click *domain.ClickEvent) error
	GetLinkStats(ctx context.Context, linkID string) (*domain.LinkStats, []domain.AgentCount, error)
}

// QRCodeRepository defines storage operations for saved QR codes
type QRCodeRepository interface {
	CreateQRCode(ctx context.Context, qr *domain.QRCode) error
	GetQRCode(ctx context.Context, id string) (*domain.QRCode, error)
	ListQRCodes(ctx context.Context, userID string, limit int) ([]domain.QRCode, error)
	RecordScan(ctx context.Context, scan *domain.ClickEvent) error
}

// Repository is the full record store used by the services
type Repository interface {
	LinkRepository
	QRCodeRepository

	GetSummary(ctx context.Context, userID string) (*domain.Summary, error)
	GetFeatureTrial(ctx context.Context, userID, feature string) (int, error)
	// UseFeatureTrial increments the counter only while it is below max.
	UseFeatureTrial(ctx context.Context, userID, feature string, max int) (bool, int, error)

	Close() error
}

// LinkService defines the short link business operations
type LinkService interface {
	Shorten(ctx context.Context, in ShortenInput) (*domain.ShortLink, string, error)
	Resolve(ctx context.Context, code string, visitor domain.Visitor) (string, error)
	LinkStats(ctx context.Context, userID, linkID string) (*domain.LinkStats, error)
	ShortURL(code string) string
}

// QRService defines the QR code business operations
type QRService interface {
	Create(ctx context.Context, in CreateQRInput) (*domain.QRCode, *string, error)
	RecordScan(ctx context.Context, id string, visitor domain.Visitor) (*domain.QRCode, error)
	Render(ctx context.Context, in RenderInput) ([]byte, string, error)
}

// DashboardService defines the read-only dashboard views
type DashboardService interface {
	Summary(ctx context.Context, userID string) (*domain.Summary, error)
	History(ctx context.Context, userID string) ([]domain.QRCode, []domain.ShortLink, error)
	Activities(ctx context.Context, userID string) ([]domain.Activity, error)
}

// FeatureService defines per-user premium feature trials
type FeatureService interface {
	Status(ctx context.Context, userID, feature string) (*domain.FeatureTrial, bool, error)
	Use(ctx context.Context, userID, feature string) (*domain.FeatureTrial, bool, error)
}

// ShortenInput is the request to create a short link
type ShortenInput struct {
	URL         string
	CustomAlias string
	Title       string
	Description string
	UserID      *string
}

// CreateQRInput is the request to persist a QR code
type CreateQRInput struct {
	Title          string
	QRType         domain.QRType
	Content        string
	QRColor        string
	BGColor        string
	Size           int
	FrameStyle     string
	CreateShortURL bool
	UserID         *string
}

// RenderInput describes a local, unpersisted QR render
type RenderInput struct {
	QRType  domain.QRType
	Content string
	QRColor string
	BGColor string
	Size    int
	Format  string
}
