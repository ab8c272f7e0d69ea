package tg_charts

import (
	"fmt"
	"image/color"

	"gm-streak/internal/leaderboard"
	"gm-streak/internal/models"

	"github.com/fogleman/gg"
)

const (
	boardWidth    = 1000
	boardRowH     = 90.0
	boardTop      = 170.0
	boardPadX     = 60.0
	boardTitle    = 44.0
	boardRowSize  = 32.0
	boardRankSize = 36.0
)

var (
	rowColor       = color.RGBA{30, 30, 40, 255}
	highlightColor = color.RGBA{60, 50, 20, 255}
)

// RenderLeaderboard draws the first n ranks and, when present, the out-of-band
// entry of the connected user under a separator.
func RenderLeaderboard(outDir, chain string, res leaderboard.Result, n int, highlight string) (string, error) {
	top := res.Top(n)
	rows := len(top)
	if res.OutOfBand != nil {
		rows++
	}
	if rows == 0 {
		return "", fmt.Errorf("leaderboard for %s is empty", chain)
	}

	height := int(boardTop + float64(rows)*boardRowH + 80)
	if res.OutOfBand != nil {
		height += 40
	}

	dc := gg.NewContext(boardWidth, height)
	dc.SetColor(bgColor)
	dc.Clear()

	setFont(dc, boardTitle)
	dc.SetColor(color.White)
	dc.DrawString(fmt.Sprintf("GM Leaderboard · %s", chainTitle(chain)), boardPadX, 100)

	hl := models.NormalizeAddress(highlight)
	y := boardTop
	for _, e := range top {
		drawBoardRow(dc, e, y, hl != "" && models.NormalizeAddress(e.Address) == hl)
		y += boardRowH
	}

	if res.OutOfBand != nil {
		setFont(dc, boardRowSize)
		dc.SetColor(mutedColor)
		dc.DrawStringAnchored("· · ·", float64(boardWidth)/2, y+15, 0.5, 0.5)
		y += 40
		drawBoardRow(dc, *res.OutOfBand, y, true)
	}

	return savePNG(dc, outDir, fmt.Sprintf("leaderboard_%s.png", chain))
}

func drawBoardRow(dc *gg.Context, e models.LeaderboardEntry, y float64, highlighted bool) {
	if highlighted {
		dc.SetColor(highlightColor)
	} else {
		dc.SetColor(rowColor)
	}
	dc.DrawRoundedRectangle(boardPadX, y, float64(boardWidth)-2*boardPadX, boardRowH-12, 14)
	dc.Fill()

	mid := y + (boardRowH-12)/2

	setFont(dc, boardRankSize)
	dc.SetColor(accentColor)
	dc.DrawStringAnchored(fmt.Sprintf("#%d", e.Rank), boardPadX+30, mid, 0, 0.35)

	setFont(dc, boardRowSize)
	dc.SetColor(color.White)
	dc.DrawStringAnchored(e.DisplayName(), boardPadX+150, mid, 0, 0.35)

	dc.SetColor(mutedColor)
	stats := fmt.Sprintf("%d days · %s GMs", e.Streak, FormatCount(e.TotalActions))
	dc.DrawStringAnchored(stats, float64(boardWidth)-boardPadX-30, mid, 1, 0.35)
}
