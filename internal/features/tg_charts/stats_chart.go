package tg_charts

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"gm-streak/internal/infra/fs"

	"github.com/fogleman/gg"
)

const (
	chartWidth  = 1600
	chartHeight = 900

	headerX      = 120.0
	headerY      = 110.0
	todayLabelX  = 900.0
	avgLabelX    = 1240.0
	labelY       = 90.0
	valueY       = 160.0
	chartDays    = 7
	chartLeft    = 160.0
	chartRight   = 1480.0
	chartTop     = 280.0
	chartBottom  = 780.0
	barWidth     = 130.0
	gridLines    = 4
	titleSize    = 48.0
	labelSize    = 26.0
	valueSize    = 52.0
	barValueSize = 26.0
	dateSize     = 22.0
)

var (
	bgColor     = color.RGBA{18, 18, 24, 255}
	barColor    = color.RGBA{255, 196, 0, 255}
	todayColor  = color.RGBA{0, 220, 120, 255}
	gridColor   = color.RGBA{60, 60, 70, 255}
	mutedColor  = color.RGBA{150, 150, 160, 255}
	accentColor = color.RGBA{255, 196, 0, 255}
)

// GenerateGMChart renders daily GM counts of the last seven UTC days ending at now.
// Days without a stats entry are drawn as empty bars.
func GenerateGMChart(outDir, chain string, entries []fs.GMStatsEntry, now time.Time) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("no gm stats available for %s", chain)
	}

	byDate := make(map[string]fs.GMStatsEntry, len(entries))
	var sum uint64
	for _, e := range entries {
		byDate[e.Date] = e
		sum += e.TodaysActions
	}
	avg := sum / uint64(len(entries))

	today := now.UTC().Truncate(24 * time.Hour)
	counts := make([]uint64, chartDays)
	labels := make([]string, chartDays)
	for i := 0; i < chartDays; i++ {
		day := today.AddDate(0, 0, i-(chartDays-1))
		counts[i] = byDate[day.Format("2006-01-02")].TodaysActions
		labels[i] = day.Format("Mon 02")
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(bgColor)
	dc.Clear()

	setFont(dc, titleSize)
	dc.SetColor(color.White)
	dc.DrawString(fmt.Sprintf("GM on %s", chainTitle(chain)), headerX, headerY)

	setFont(dc, labelSize)
	dc.SetColor(mutedColor)
	dc.DrawString("Today's GMs", todayLabelX, labelY)
	dc.DrawString("Average Daily GMs", avgLabelX, labelY)

	setFont(dc, valueSize)
	dc.SetColor(todayColor)
	dc.DrawString(FormatCount(counts[chartDays-1]), todayLabelX, valueY)
	dc.SetColor(color.White)
	dc.DrawString(FormatCount(avg), avgLabelX, valueY)

	maxCount := uint64(1)
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	scale := niceCeiling(maxCount)
	height := chartBottom - chartTop

	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	for i := 0; i <= gridLines; i++ {
		y := chartBottom - float64(i)/gridLines*height
		dc.DrawLine(chartLeft-40, y, chartRight+40, y)
		dc.Stroke()
	}

	step := (chartRight - chartLeft - barWidth) / float64(chartDays-1)
	for i, c := range counts {
		x := chartLeft + float64(i)*step
		h := float64(c) / float64(scale) * height
		y := chartBottom - h

		if i == chartDays-1 {
			dc.SetColor(todayColor)
		} else {
			dc.SetColor(barColor)
		}
		dc.DrawRectangle(x, y, barWidth, h)
		dc.Fill()

		if c > 0 {
			setFont(dc, barValueSize)
			dc.SetColor(color.White)
			drawCentered(dc, FormatCount(c), x+barWidth/2, y-16)
		}

		setFont(dc, dateSize)
		dc.SetColor(mutedColor)
		drawCentered(dc, labels[i], x+barWidth/2, chartBottom+40)
	}

	return savePNG(dc, outDir, fmt.Sprintf("gm_chart_%s.png", chain))
}

func chainTitle(chain string) string {
	if chain == "" {
		return chain
	}
	return strings.ToUpper(chain[:1]) + chain[1:]
}

// niceCeiling rounds v up to 1, 2 or 5 times a power of ten.
func niceCeiling(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	pow := uint64(1)
	for pow*10 <= v {
		pow *= 10
	}
	for _, m := range []uint64{1, 2, 5, 10} {
		if m*pow >= v {
			return m * pow
		}
	}
	return 10 * pow
}
