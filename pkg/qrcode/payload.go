// Package qrcode turns a semantic QR type plus user content into the literal
// payload scanners expect, and renders that payload as PNG, JPEG or SVG.
package qrcode

import "github.com/wadjakorntonsri/lnkzip/pkg/core/domain"

// Payload returns the literal string encoded into the symbol for a QR type.
// Types without a dedicated scheme encode the content verbatim.
func Payload(t domain.QRType, content string) string {
	switch t {
	case domain.QRTypeEmail:
		return "mailto:" + content
	case domain.QRTypePhone:
		return "tel:" + content
	case domain.QRTypeSMS:
		return "sms:" + content
	case domain.QRTypeWiFi:
		return "WIFI:T:WPA;S:NetworkName;P:" + content + ";H:false;;"
	case domain.QRTypeVCard:
		return "BEGIN:VCARD\nVERSION:3.0\nFN:" + content + "\nEND:VCARD"
	default:
		return content
	}
}
