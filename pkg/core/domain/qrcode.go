package domain

import "time"

// QRType is the semantic kind of payload encoded into a QR symbol
type QRType string

const (
	QRTypeURL    QRType = "url"
	QRTypeText   QRType = "text"
	QRTypeEmail  QRType = "email"
	QRTypePhone  QRType = "phone"
	QRTypeSMS    QRType = "sms"
	QRTypeWiFi   QRType = "wifi"
	QRTypeVCard  QRType = "vcard"
	QRTypeSocial QRType = "social"
	QRTypeCoupon QRType = "coupon"
	QRTypeImage  QRType = "image"
	QRTypeVideo  QRType = "video"
)

var qrTypes = map[QRType]struct{}{
	QRTypeURL: {}, QRTypeText: {}, QRTypeEmail: {}, QRTypePhone: {}, QRTypeSMS: {}, QRTypeWiFi: {},
	QRTypeVCard: {}, QRTypeSocial: {}, QRTypeCoupon: {}, QRTypeImage: {}, QRTypeVideo: {},
}

func (t QRType) Valid() bool {
	_, ok := qrTypes[t]
	return ok
}

// Frame styles drawn around the rendered symbol
const (
	FrameNone    = "none"
	FrameBasic   = "basic"
	FrameModern  = "modern"
	FrameElegant = "elegant"
)

// Style defaults applied when the caller leaves a field empty
const (
	DefaultQRColor = "#3B82F6"
	DefaultBGColor = "#FFFFFF"
	DefaultSize    = 256
	DefaultFrame   = FrameNone
)

// SizePresets are the pixel dimensions a QR code may be saved with.
var SizePresets = []int{128, 256, 512, 1024}

func ValidFrame(frame string) bool {
	switch frame {
	case FrameNone, FrameBasic, FrameModern, FrameElegant:
		return true
	}
	return false
}

func ValidSize(size int) bool {
	for _, s := range SizePresets {
		if s == size {
			return true
		}
	}
	return false
}

// QRCode is a saved, customized QR code
type QRCode struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	QRType     QRType    `json:"qr_type"`
	Content    string    `json:"content"`
	ShortURL   *string   `json:"short_url"`
	QRColor    string    `json:"qr_color"`
	BGColor    string    `json:"bg_color"`
	Size       int       `json:"size"`
	FrameStyle string    `json:"frame_style"`
	ScanCount  int64     `json:"scan_count"`
	IsActive   bool      `json:"is_active"`
	UserID     *string   `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
