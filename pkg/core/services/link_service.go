package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mssola/useragent"
	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
)

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// reserved path segments served by the router itself
var reservedAliases = map[string]struct{}{
	"api": {}, "auth": {}, "healthz": {}, "r": {},
}

type LinkService struct {
	repo            ports.Repository
	codes           *ShortCodeGenerator
	baseURL         string
	trackingTimeout time.Duration
	now             func() time.Time
}

func NewLinkService(repo ports.Repository, baseURL string, trackingTimeout time.Duration) *LinkService {
	return &LinkService{
		repo:            repo,
		codes:           NewShortCodeGenerator(repo),
		baseURL:         strings.TrimRight(baseURL, "/"),
		trackingTimeout: trackingTimeout,
		now:             time.Now,
	}
}

// ShortURL is the canonical, externally resolvable URL for a code.
func (s *LinkService) ShortURL(code string) string {
	return s.baseURL + "/" + code
}

func (s *LinkService) Shorten(ctx context.Context, in ports.ShortenInput) (*domain.ShortLink, string, error) {
	if strings.TrimSpace(in.URL) == "" {
		return nil, "", domain.NewValidationError("url", "is required")
	}
	if in.CustomAlias != "" {
		if !aliasPattern.MatchString(in.CustomAlias) {
			return nil, "", domain.NewValidationError("customAlias", "may only contain letters, digits, '-' and '_'")
		}
		if _, ok := reservedAliases[strings.ToLower(in.CustomAlias)]; ok {
			return nil, "", domain.NewValidationError("customAlias", "is reserved")
		}
	}

	link, err := s.createLink(ctx, in)
	if err != nil {
		return nil, "", err
	}
	return link, s.ShortURL(link.ShortCode), nil
}

// createLink runs the generator and inserts the row. A generated code that loses an
// insert race is regenerated; a custom alias that loses one is a conflict.
func (s *LinkService) createLink(ctx context.Context, in ports.ShortenInput) (*domain.ShortLink, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := s.codes.Generate(ctx, in.CustomAlias)
		if errors.Is(err, domain.ErrAliasConflict) {
			return nil, err
		}
		if err != nil {
			log.Error().Err(err).Msg("short code generation failed")
			return nil, fmt.Errorf("%w: %w", domain.ErrCreationFailed, err)
		}

		link := &domain.ShortLink{
			OriginalURL: in.URL,
			ShortCode:   code,
			Title:       in.Title,
			Description: in.Description,
			IsActive:    true,
			UserID:      in.UserID,
			CreatedAt:   s.now(),
		}
		if in.CustomAlias != "" {
			alias := in.CustomAlias
			link.CustomAlias = &alias
		}

		err = s.repo.CreateLink(ctx, link)
		if err == nil {
			return link, nil
		}
		if errors.Is(err, domain.ErrAliasConflict) {
			if in.CustomAlias != "" {
				return nil, err
			}
			continue
		}
		log.Error().Err(err).Str("short_code", code).Msg("insert short link failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrCreationFailed, err)
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrCreationFailed, errCodeSpaceExhausted)
}

// Resolve looks up the active link for code, records the visit and returns the
// destination. Tracking failures never fail the resolution.
func (s *LinkService) Resolve(ctx context.Context, code string, visitor domain.Visitor) (string, error) {
	link, err := s.repo.GetActiveLink(ctx, code, s.now())
	if err != nil {
		return "", fmt.Errorf("lookup %q: %w", code, err)
	}
	if link == nil {
		return "", domain.ErrNotFound
	}

	s.trackClick(ctx, link, visitor)
	return link.OriginalURL, nil
}

func (s *LinkService) trackClick(ctx context.Context, link *domain.ShortLink, visitor domain.Visitor) {
	// Detached from the request so a client hanging up mid-redirect still gets counted.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.trackingTimeout)
	defer cancel()

	click := &domain.ClickEvent{
		URLID:     &link.ID,
		Timestamp: s.now(),
		IPAddress: visitor.IP,
		UserAgent: visitor.UserAgent,
	}
	if err := s.repo.RecordClick(ctx, click); err != nil {
		log.Warn().Err(err).Str("short_code", link.ShortCode).Msg("click tracking failed")
	}
}

// LinkStats returns aggregated click statistics. Links owned by someone else are
// reported as not found.
func (s *LinkService) LinkStats(ctx context.Context, userID, linkID string) (*domain.LinkStats, error) {
	link, err := s.repo.GetLinkByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil || link.UserID == nil || *link.UserID != userID {
		return nil, domain.ErrNotFound
	}

	stats, agents, err := s.repo.GetLinkStats(ctx, linkID)
	if err != nil {
		return nil, err
	}

	stats.Browsers = map[string]int64{}
	stats.Platforms = map[string]int64{}
	stats.Devices = map[string]int64{}
	for _, a := range agents {
		browser, platform, device := parseUserAgent(a.UserAgent)
		stats.Browsers[browser] += a.Count
		stats.Platforms[platform] += a.Count
		stats.Devices[device] += a.Count
	}
	return stats, nil
}

func parseUserAgent(uaString string) (browser, platform, device string) {
	if uaString == "" {
		return "Unknown", "Unknown", "Unknown"
	}

	ua := useragent.New(uaString)
	browser, _ = ua.Browser()
	platform = ua.OS()
	device = "Desktop"
	if ua.Mobile() {
		device = "Mobile"
	} else if ua.Bot() {
		device = "Bot"
	}

	if browser == "" {
		browser = "Unknown"
	}
	if platform == "" {
		platform = "Unknown"
	}
	return browser, platform, device
}
