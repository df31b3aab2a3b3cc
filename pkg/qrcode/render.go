package qrcode

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"image/jpeg"
	"strconv"
	"strings"

	goqrcode "github.com/skip2/go-qrcode"
)

// Format is an export file format
type Format string

const (
	FormatPNG Format = "png"
	FormatJPG Format = "jpg"
	FormatSVG Format = "svg"
)

var ErrInvalidColor = errors.New("invalid hex color")

// ParseFormat accepts png, jpg/jpeg and svg. Empty means png.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPG, nil
	case "svg":
		return FormatSVG, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

// ContentType returns the MIME type of an exported file
func (f Format) ContentType() string {
	switch f {
	case FormatJPG:
		return "image/jpeg"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "image/png"
	}
}

// Style controls the rendered surface
type Style struct {
	Foreground string // #RRGGBB or #RGB
	Background string
	Size       int // pixels per side
}

// Render encodes payload and serializes the symbol in the requested format.
func Render(payload string, style Style, format Format) ([]byte, error) {
	fg, err := ParseHexColor(style.Foreground)
	if err != nil {
		return nil, err
	}
	bg, err := ParseHexColor(style.Background)
	if err != nil {
		return nil, err
	}
	if style.Size <= 0 {
		return nil, fmt.Errorf("size must be positive, got %d", style.Size)
	}

	q, err := goqrcode.New(payload, goqrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	q.ForegroundColor = fg
	q.BackgroundColor = bg

	switch format {
	case FormatPNG:
		return q.PNG(style.Size)
	case FormatJPG:
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, q.Image(style.Size), &jpeg.Options{Quality: 90}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatSVG:
		return svg(q.Bitmap(), style), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// svg draws one rect per dark module on a viewBox measured in modules.
func svg(bitmap [][]bool, style Style) []byte {
	n := len(bitmap)
	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		style.Size, style.Size, n, n)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, n, n, style.Background)
	fmt.Fprintf(&b, `<path fill="%s" d="`, style.Foreground)
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				fmt.Fprintf(&b, "M%d %dh1v1h-1z", x, y)
			}
		}
	}
	b.WriteString(`"/></svg>`)
	return b.Bytes()
}

// ParseHexColor parses #RRGGBB and #RGB into an opaque color.
func ParseHexColor(s string) (color.RGBA, error) {
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
