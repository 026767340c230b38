package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"

	"github.com/docentkit/docentkit-backend/internal/modules/lesson/kit"
	"github.com/docentkit/docentkit-backend/internal/platform/logger"
)

const (
	cardWidth  = 1280
	cardHeight = 720
)

var cardPalette = []color.RGBA{
	{R: 0x1f, G: 0x4e, B: 0x79, A: 0xff},
	{R: 0x2e, G: 0x6e, B: 0x4e, A: 0xff},
	{R: 0x8a, G: 0x3b, B: 0x3b, A: 0xff},
	{R: 0x5b, G: 0x3b, B: 0x8a, A: 0xff},
}

// SlideCards renders a PNG title card for every slide asset without an image
// or animation URL, writing <slide>.png under dir. Best-effort: a render
// failure logs a warning and skips the slide, it never fails the pipeline.
func SlideCards(log *logger.Logger, k kit.Kit, dir string) []string {
	if log == nil {
		log = logger.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("slide card dir create failed", "dir", dir, "error", err.Error())
		return nil
	}

	var written []string
	for _, s := range k.SlideAssets {
		if s.ImageURL != "" || s.AnimationURL != "" {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("slide-%02d.png", s.Slide))
		if err := renderCard(s, path); err != nil {
			log.Warn("slide card render failed", "slide", s.Slide, "error", err.Error())
			continue
		}
		written = append(written, path)
	}
	return written
}

func renderCard(s kit.SlideAsset, path string) error {
	dc := gg.NewContext(cardWidth, cardHeight)

	// Slide comes from unvalidated model output and may be non-positive.
	idx := s.Slide % len(cardPalette)
	if idx < 0 {
		idx += len(cardPalette)
	}
	bg := cardPalette[idx]
	dc.SetColor(bg)
	dc.Clear()

	dc.SetColor(color.White)
	title := s.Title
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("Slide %d", s.Slide)
	}
	dc.DrawStringWrapped(title, cardWidth/2, 140, 0.5, 0.5, cardWidth-160, 1.4, gg.AlignCenter)

	y := 300.0
	for i, b := range s.Bullets {
		if i >= 6 {
			break
		}
		dc.DrawStringWrapped("- "+b, 120, y, 0, 0, cardWidth-240, 1.3, gg.AlignLeft)
		y += 60
	}

	dc.SetRGBA(1, 1, 1, 0.6)
	dc.DrawString(fmt.Sprintf("%d", s.Slide), cardWidth-80, cardHeight-40)

	return dc.SavePNG(path)
}
