package qrcode

import (
	"bytes"
	"errors"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/wadjakorntonsri/lnkzip/pkg/core/domain"
)

func TestPayload(t *testing.T) {
	tests := []struct {
		qrType  domain.QRType
		content string
		want    string
	}{
		{domain.QRTypeURL, "https://example.org", "https://example.org"},
		{domain.QRTypeText, "hello", "hello"},
		{domain.QRTypeEmail, "a@b.c", "mailto:a@b.c"},
		{domain.QRTypePhone, "+15551234", "tel:+15551234"},
		{domain.QRTypeSMS, "+15551234", "sms:+15551234"},
		{domain.QRTypeWiFi, "hunter2", "WIFI:T:WPA;S:NetworkName;P:hunter2;H:false;;"},
		{domain.QRTypeVCard, "Jane Doe", "BEGIN:VCARD\nVERSION:3.0\nFN:Jane Doe\nEND:VCARD"},
		{domain.QRTypeSocial, "@lnkzip", "@lnkzip"},
		{domain.QRTypeCoupon, "SAVE10", "SAVE10"},
		{domain.QRTypeImage, "https://img", "https://img"},
		{domain.QRTypeVideo, "https://vid", "https://vid"},
	}

	for _, tt := range tests {
		t.Run(string(tt.qrType), func(t *testing.T) {
			if got := Payload(tt.qrType, tt.content); got != tt.want {
				t.Errorf("Payload(%s) = %q, want %q", tt.qrType, got, tt.want)
			}
		})
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#3B82F6")
	if err != nil {
		t.Fatal(err)
	}
	if c != (color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}) {
		t.Errorf("unexpected color %+v", c)
	}

	c, err = ParseHexColor("#fff")
	if err != nil {
		t.Fatal(err)
	}
	if c != (color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
		t.Errorf("unexpected short color %+v", c)
	}

	for _, bad := range []string{"", "3B82F6", "#12345", "#zzzzzz"} {
		if _, err := ParseHexColor(bad); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("ParseHexColor(%q) error = %v, want ErrInvalidColor", bad, err)
		}
	}
}

func TestRender(t *testing.T) {
	style := Style{Foreground: "#000000", Background: "#FFFFFF", Size: 256}

	pngBytes, err := Render("https://example.org", style, FormatPNG)
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if img.Bounds().Dx() != 256 {
		t.Errorf("png width = %d, want 256", img.Bounds().Dx())
	}

	jpgBytes, err := Render("https://example.org", style, FormatJPG)
	if err != nil {
		t.Fatalf("jpg: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(jpgBytes)); err != nil {
		t.Fatalf("decode jpg: %v", err)
	}

	svgBytes, err := Render("https://example.org", style, FormatSVG)
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	s := string(svgBytes)
	if !strings.HasPrefix(s, "<svg") || !strings.HasSuffix(s, "</svg>") {
		t.Errorf("not an svg document: %.40s", s)
	}
	if !strings.Contains(s, `fill="#000000"`) {
		t.Error("svg missing foreground fill")
	}
}

func TestRenderRejectsBadInput(t *testing.T) {
	if _, err := Render("x", Style{Foreground: "red", Background: "#fff", Size: 128}, FormatPNG); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("expected color error, got %v", err)
	}
	if _, err := Render("x", Style{Foreground: "#000", Background: "#fff", Size: 0}, FormatPNG); err == nil {
		t.Error("expected size error")
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Error("expected format error")
	}
}
