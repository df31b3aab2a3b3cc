package services

import (
	"context"
	"sort"

	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
)

const historyLimit = 10

type DashboardService struct {
	repo  ports.Repository
	links *LinkService
}

func NewDashboardService(repo ports.Repository, links *LinkService) *DashboardService {
	return &DashboardService{repo: repo, links: links}
}

func (s *DashboardService) Summary(ctx context.Context, userID string) (*domain.Summary, error) {
	if userID == "" {
		return &domain.Summary{}, nil
	}
	return s.repo.GetSummary(ctx, userID)
}

func (s *DashboardService) History(ctx context.Context, userID string) ([]domain.QRCode, []domain.ShortLink, error) {
	if userID == "" {
		return []domain.QRCode{}, []domain.ShortLink{}, nil
	}
	codes, err := s.repo.ListQRCodes(ctx, userID, historyLimit)
	if err != nil {
		return nil, nil, err
	}
	links, err := s.repo.ListLinks(ctx, userID, historyLimit)
	if err != nil {
		return nil, nil, err
	}
	return codes, links, nil
}

// Activities merges the recent QR codes and links into a single newest-first feed.
func (s *DashboardService) Activities(ctx context.Context, userID string) ([]domain.Activity, error) {
	codes, links, err := s.History(ctx, userID)
	if err != nil {
		return nil, err
	}

	activities := make([]domain.Activity, 0, len(codes)+len(links))
	for _, qr := range codes {
		scans := qr.ScanCount
		a := domain.Activity{
			ID:        qr.ID,
			Type:      "qr_code",
			Title:     qr.Title,
			Content:   qr.Content,
			Scans:     &scans,
			CreatedAt: qr.CreatedAt,
			QRColor:   qr.QRColor,
			BGColor:   qr.BGColor,
		}
		if qr.ShortURL != nil {
			a.ShortURL = *qr.ShortURL
		}
		activities = append(activities, a)
	}
	for _, l := range links {
		clicks := l.ClickCount
		title := l.Title
		if title == "" {
			title = "Short URL"
		}
		activities = append(activities, domain.Activity{
			ID:        l.ID,
			Type:      "short_url",
			Title:     title,
			Content:   l.OriginalURL,
			ShortURL:  s.links.ShortURL(l.ShortCode),
			Clicks:    &clicks,
			CreatedAt: l.CreatedAt,
		})
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].CreatedAt.After(activities[j].CreatedAt)
	})
	if len(activities) > historyLimit {
		activities = activities[:historyLimit]
	}
	return activities, nil
}
