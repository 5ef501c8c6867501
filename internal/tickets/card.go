package tickets

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	cardMargin   = 24
	cardLineGap  = 18
	cardMaxChars = 40
)

// Card is the downloadable ticket: the QR plus the human-readable code.
type Card struct {
	Code         string
	AttendeeName string
	EventTitle   string
}

// RenderCard draws the ticket card with a qrSize QR symbol.
func RenderCard(card Card, qrSize int) (image.Image, error) {
	qr, err := QRImage(card.Code, qrSize)
	if err != nil {
		return nil, err
	}
	lines := []string{card.EventTitle, card.AttendeeName, card.Code}
	width := qrSize + 2*cardMargin
	height := qrSize + 2*cardMargin + len(lines)*cardLineGap

	canvas := imaging.New(width, height, color.White)
	canvas = imaging.Paste(canvas, qr, image.Pt(cardMargin, cardMargin))

	y := cardMargin + qrSize + cardLineGap - 4
	for _, line := range lines {
		drawCentered(canvas, truncate(line), y)
		y += cardLineGap
	}
	return canvas, nil
}

// RenderCardPNG renders the card and encodes it as PNG.
func RenderCardPNG(card Card, qrSize int) ([]byte, error) {
	img, err := RenderCard(card, qrSize)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return buf.Bytes(), nil
}

func drawCentered(dst draw.Image, text string, baseline int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	w := d.MeasureString(text).Ceil()
	x := (dst.Bounds().Dx() - w) / 2
	if x < 0 {
		x = 0
	}
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= cardMaxChars {
		return s
	}
	return string(r[:cardMaxChars-3]) + "..."
}
