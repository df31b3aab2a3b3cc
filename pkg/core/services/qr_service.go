package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
	"github.com/wadjakorntonsri/lnkzip/pkg/qrcode"
)

type QRService struct {
	repo            ports.Repository
	links           *LinkService
	trackingTimeout time.Duration
	now             func() time.Time
}

func NewQRService(repo ports.Repository, links *LinkService) *QRService {
	return &QRService{
		repo:            repo,
		links:           links,
		trackingTimeout: links.trackingTimeout,
		now:             time.Now,
	}
}

// Create persists a QR code, minting a companion short link first when asked to for
// url-type codes. The two inserts are not atomic: a failed QR insert deactivates the
// companion link on a best-effort basis.
func (s *QRService) Create(ctx context.Context, in ports.CreateQRInput) (*domain.QRCode, *string, error) {
	qr, err := s.prepare(in)
	if err != nil {
		return nil, nil, err
	}

	var (
		shortURL *string
		link     *domain.ShortLink
	)
	if in.CreateShortURL && in.QRType == domain.QRTypeURL {
		link, err = s.links.createLink(ctx, ports.ShortenInput{
			URL:    in.Content,
			Title:  qr.Title,
			UserID: in.UserID,
		})
		if err != nil {
			// The QR code is still saved, encoding the original content.
			log.Warn().Err(err).Msg("companion short link not created")
		} else {
			u := s.links.ShortURL(link.ShortCode)
			shortURL = &u
			qr.Content = u
			qr.ShortURL = shortURL
		}
	}

	if err := s.repo.CreateQRCode(ctx, qr); err != nil {
		log.Error().Err(err).Msg("insert qr code failed")
		if link != nil {
			if derr := s.repo.DeactivateLink(context.WithoutCancel(ctx), link.ID); derr != nil {
				log.Error().Err(derr).Str("link_id", link.ID).Msg("orphaned short link left active")
			}
		}
		return nil, nil, fmt.Errorf("%w: %w", domain.ErrCreationFailed, err)
	}

	return qr, shortURL, nil
}

func (s *QRService) prepare(in ports.CreateQRInput) (*domain.QRCode, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.NewValidationError("title", "is required")
	}
	if !in.QRType.Valid() {
		return nil, domain.NewValidationError("qrType", fmt.Sprintf("unknown type %q", in.QRType))
	}
	if in.Content == "" {
		return nil, domain.NewValidationError("content", "is required")
	}

	qr := &domain.QRCode{
		Title:      title,
		QRType:     in.QRType,
		Content:    in.Content,
		QRColor:    orDefault(in.QRColor, domain.DefaultQRColor),
		BGColor:    orDefault(in.BGColor, domain.DefaultBGColor),
		Size:       in.Size,
		FrameStyle: orDefault(in.FrameStyle, domain.DefaultFrame),
		IsActive:   true,
		UserID:     in.UserID,
		CreatedAt:  s.now(),
	}
	qr.UpdatedAt = qr.CreatedAt

	if qr.Size == 0 {
		qr.Size = domain.DefaultSize
	}
	if !domain.ValidSize(qr.Size) {
		return nil, domain.NewValidationError("size", fmt.Sprintf("must be one of %v", domain.SizePresets))
	}
	if !domain.ValidFrame(qr.FrameStyle) {
		return nil, domain.NewValidationError("frameStyle", fmt.Sprintf("unknown frame %q", qr.FrameStyle))
	}
	for field, c := range map[string]string{"qrColor": qr.QRColor, "bgColor": qr.BGColor} {
		if _, err := qrcode.ParseHexColor(c); err != nil {
			return nil, domain.NewValidationError(field, err.Error())
		}
	}
	return qr, nil
}

// RecordScan logs one scan of an active QR code and returns the updated row.
func (s *QRService) RecordScan(ctx context.Context, id string, visitor domain.Visitor) (*domain.QRCode, error) {
	qr, err := s.repo.GetQRCode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup qr code %q: %w", id, err)
	}
	if qr == nil || !qr.IsActive {
		return nil, domain.ErrNotFound
	}

	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.trackingTimeout)
	defer cancel()

	scan := &domain.ClickEvent{
		QRCodeID:  &qr.ID,
		Timestamp: s.now(),
		IPAddress: visitor.IP,
		UserAgent: visitor.UserAgent,
	}
	if err := s.repo.RecordScan(tctx, scan); err != nil {
		log.Warn().Err(err).Str("qr_code_id", qr.ID).Msg("scan tracking failed")
		return qr, nil
	}
	qr.ScanCount++
	return qr, nil
}

// Render produces an export file for the given content without touching the store.
func (s *QRService) Render(ctx context.Context, in ports.RenderInput) ([]byte, string, error) {
	if !in.QRType.Valid() {
		return nil, "", domain.NewValidationError("qrType", fmt.Sprintf("unknown type %q", in.QRType))
	}
	if in.Content == "" {
		return nil, "", domain.NewValidationError("content", "is required")
	}
	format, err := qrcode.ParseFormat(in.Format)
	if err != nil {
		return nil, "", domain.NewValidationError("format", err.Error())
	}
	size := in.Size
	if size == 0 {
		size = domain.DefaultSize
	}
	if !domain.ValidSize(size) {
		return nil, "", domain.NewValidationError("size", fmt.Sprintf("must be one of %v", domain.SizePresets))
	}

	style := qrcode.Style{
		Foreground: orDefault(in.QRColor, domain.DefaultQRColor),
		Background: orDefault(in.BGColor, domain.DefaultBGColor),
		Size:       size,
	}
	data, err := qrcode.Render(qrcode.Payload(in.QRType, in.Content), style, format)
	if errors.Is(err, qrcode.ErrInvalidColor) {
		return nil, "", domain.NewValidationError("color", err.Error())
	}
	if err != nil {
		return nil, "", err
	}
	return data, format.ContentType(), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
