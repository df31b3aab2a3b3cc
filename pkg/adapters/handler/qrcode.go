package handler

import (
	"net/http"
	"strconv"

	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
	"github.com/wadjakorntonsri/lnkzip/pkg/ports"
)

type QRHandler struct {
	service ports.QRService
}

func NewQRHandler(service ports.QRService) *QRHandler {
	return &QRHandler{service: service}
}

// CreateQRRequest payload
type CreateQRRequest struct {
	Title          string `json:"title" validate:"required,max=255"`
	QRType         string `json:"qrType" validate:"required,oneof=url text email phone sms wifi vcard social coupon image video"`
	Content        string `json:"content" validate:"required"`
	QRColor        string `json:"qrColor,omitempty" validate:"omitempty,hexcolor"`
	BGColor        string `json:"bgColor,omitempty" validate:"omitempty,hexcolor"`
	Size           int    `json:"size,omitempty" validate:"omitempty,oneof=128 256 512 1024"`
	FrameStyle     string `json:"frameStyle,omitempty" validate:"omitempty,oneof=none basic modern elegant"`
	CreateShortURL bool   `json:"createShortUrl"`
}

type CreateQRResponse struct {
	QRCode   *domain.QRCode `json:"qrCode"`
	ShortURL *string        `json:"shortUrl"`
}

// RenderQRRequest payload. Nothing is persisted.
type RenderQRRequest struct {
	QRType  string `json:"qrType" validate:"required,oneof=url text email phone sms wifi vcard social coupon image video"`
	Content string `json:"content" validate:"required"`
	QRColor string `json:"qrColor,omitempty" validate:"omitempty,hexcolor"`
	BGColor string `json:"bgColor,omitempty" validate:"omitempty,hexcolor"`
	Size    int    `json:"size,omitempty" validate:"omitempty,oneof=128 256 512 1024"`
	Format  string `json:"format,omitempty" validate:"omitempty,oneof=png jpg jpeg svg"`
}

// Create persists a QR code, optionally backed by a new short link
func (h *QRHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQRRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err, "Failed to create QR code")
		return
	}

	qr, shortURL, err := h.service.Create(r.Context(), ports.CreateQRInput{
		Title:          req.Title,
		QRType:         domain.QRType(req.QRType),
		Content:        req.Content,
		QRColor:        req.QRColor,
		BGColor:        req.BGColor,
		Size:           req.Size,
		FrameStyle:     req.FrameStyle,
		CreateShortURL: req.CreateShortURL,
		UserID:         userIDPtr(r.Context()),
	})
	if err != nil {
		writeServiceError(w, r, err, "Failed to create QR code")
		return
	}

	writeJSON(w, http.StatusOK, CreateQRResponse{QRCode: qr, ShortURL: shortURL})
}

// Render returns the encoded image without saving anything
func (h *QRHandler) Render(w http.ResponseWriter, r *http.Request) {
	var req RenderQRRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err, "Failed to render QR code")
		return
	}

	body, contentType, ext, err := h.render(r, req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="qr-code.`+ext+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *QRHandler) render(r *http.Request, req RenderQRRequest) ([]byte, string, string, error) {
	body, contentType, err := h.service.Render(r.Context(), ports.RenderInput{
		QRType:  domain.QRType(req.QRType),
		Content: req.Content,
		QRColor: req.QRColor,
		BGColor: req.BGColor,
		Size:    req.Size,
		Format:  req.Format,
	})
	if err != nil {
		return nil, "", "", err
	}

	ext := "png"
	switch contentType {
	case "image/jpeg":
		ext = "jpg"
	case "image/svg+xml":
		ext = "svg"
	}
	return body, contentType, ext, nil
}

// Scan records one scan of a saved QR code
func (h *QRHandler) Scan(w http.ResponseWriter, r *http.Request) {
	qr, err := h.service.RecordScan(r.Context(), r.PathValue("id"), visitorFrom(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to record scan")
		return
	}
	writeJSON(w, http.StatusOK, map[string]*domain.QRCode{"qrCode": qr})
}
