package tg_charts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	logging "gm-streak/internal/infra/log"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
)

// Inter first, then whatever sans-serif the host has
var fontPaths = []string{
	"etc/fonts/InterVariable.ttf",
	"etc/fonts/Inter-Regular.ttf",
	"../../../etc/fonts/InterVariable.ttf",
	"~/Library/Fonts/InterVariable.ttf",
	"~/Library/Fonts/Inter-Regular.ttf",
	"/Library/Fonts/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/inter/Inter-Regular.ttf",
	"/usr/local/share/fonts/Inter-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
}

var (
	fontOnce sync.Once
	fontPath string
)

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if homeDir, err := os.UserHomeDir(); err == nil {
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}

// resolveFont finds the first loadable font once per process.
func resolveFont() string {
	fontOnce.Do(func() {
		probe := gg.NewContext(1, 1)
		for _, p := range fontPaths {
			expanded := expandPath(p)
			if _, err := os.Stat(expanded); err != nil {
				continue
			}
			if err := probe.LoadFontFace(expanded, 12); err != nil {
				logging.LogWarn("Font file exists but failed to load", zap.String("path", expanded), zap.Error(err))
				continue
			}
			fontPath = expanded
			logging.LogDebug("Chart font loaded", zap.String("path", expanded))
			return
		}
		logging.LogWarn("No TTF font found, charts use the built-in face", zap.Int("paths_checked", len(fontPaths)))
	})
	return fontPath
}

// setFont switches dc to size; a no-op when only the built-in face is available.
func setFont(dc *gg.Context, size float64) {
	if p := resolveFont(); p != "" {
		_ = dc.LoadFontFace(p, size)
	}
}

func drawCentered(dc *gg.Context, s string, cx, y float64) {
	w, _ := dc.MeasureString(s)
	dc.DrawString(s, cx-w/2, y)
}

// savePNG writes dc to dir/name and checks that something landed on disk.
func savePNG(dc *gg.Context, dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create charts directory: %w", err)
	}

	filename := filepath.Join(dir, name)
	if err := dc.SavePNG(filename); err != nil {
		return "", fmt.Errorf("failed to save chart: %w", err)
	}

	info, err := os.Stat(filename)
	if err != nil {
		return "", fmt.Errorf("failed to stat chart file: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(filename)
		logging.LogError("Chart file is empty after rendering", zap.String("filename", filename))
		return "", fmt.Errorf("chart file is empty after rendering")
	}

	logging.LogInfo("Chart generated", zap.String("filename", filename), zap.Int64("fileSize", info.Size()))
	return filename, nil
}

// FormatCount 12345 -> 12.3K, 2500000 -> 2.5M
func FormatCount(n uint64) string {
	switch {
	case n >= 1_000_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000_000)) + "M"
	case n >= 10_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000)) + "K"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func trimZero(s string) string {
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		return s[:len(s)-2]
	}
	return s
}
