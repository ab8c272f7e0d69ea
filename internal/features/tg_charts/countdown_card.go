package tg_charts

import (
	"fmt"
	"image/color"
	"math"

	"gm-streak/internal/models"
	"gm-streak/internal/streak"

	"github.com/fogleman/gg"
)

const (
	cardSize      = 800
	ringRadius    = 250.0
	ringWidth     = 36.0
	clockSize     = 96.0
	captionSize   = 30.0
	statLineSize  = 28.0
	ringTopOffset = 40.0
)

var (
	ringTrack = color.RGBA{50, 50, 60, 255}
	ringFill  = color.RGBA{255, 196, 0, 255}
	ringReady = color.RGBA{0, 220, 120, 255}
)

// RenderCountdown draws a progress ring for frame with the remaining time in
// the middle. record may be nil when only the countdown is known.
func RenderCountdown(outDir, name string, frame streak.Frame, record *models.UserStreakRecord) (string, error) {
	dc := gg.NewContext(cardSize, cardSize)
	dc.SetColor(bgColor)
	dc.Clear()

	cx := float64(cardSize) / 2
	cy := float64(cardSize)/2 - ringTopOffset

	dc.SetLineWidth(ringWidth)
	dc.SetLineCapRound()
	dc.SetColor(ringTrack)
	dc.DrawCircle(cx, cy, ringRadius)
	dc.Stroke()

	progress := frame.Progress
	fill := ringFill
	if frame.State.Ready() {
		progress = 1
		fill = ringReady
	}
	if progress > 0 {
		start := -math.Pi / 2
		dc.SetColor(fill)
		dc.DrawArc(cx, cy, ringRadius, start, start+progress*2*math.Pi)
		dc.Stroke()
	}

	setFont(dc, clockSize)
	dc.SetColor(color.White)
	clock := frame.State.Clock()
	if frame.State.Ready() {
		clock = "GM!"
	}
	dc.DrawStringAnchored(clock, cx, cy, 0.5, 0.35)

	setFont(dc, captionSize)
	dc.SetColor(mutedColor)
	caption := "until next GM"
	switch {
	case frame.State.Ready():
		caption = "ready to GM"
	case frame.Target.Mode == streak.ModeMidnight:
		caption = "until midnight"
	}
	dc.DrawStringAnchored(caption, cx, cy+70, 0.5, 0.5)

	if record != nil {
		setFont(dc, statLineSize)
		dc.SetColor(accentColor)
		line := fmt.Sprintf("Streak %d  ·  Best %d  ·  Total %s",
			record.CurrentStreak, record.LongestStreak, FormatCount(record.TotalActions))
		dc.DrawStringAnchored(line, cx, float64(cardSize)-80, 0.5, 0.5)
	}

	return savePNG(dc, outDir, name)
}
