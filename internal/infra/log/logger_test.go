package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitWritesFileLog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Options{Dir: dir, Debug: true}))
	t.Cleanup(func() {
		Logger = zap.NewNop()
		consoleLogger = zap.NewNop()
	})

	LogInfo("profile batch fetched", zap.Int("count", 3), zap.String("chain", "base"))
	LogDebug("cache hit", zap.String("address", "0xabc"))
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "INFO profile batch fetched")
	assert.Contains(t, content, `"count":3`)
	assert.Contains(t, content, `"chain":"base"`)
	assert.Contains(t, content, "DEBUG cache hit")
}

func TestHelpersAreNoopsBeforeInit(t *testing.T) {
	// must not panic or create files
	LogWarn("nothing configured")
	LogResponse("id", 500, 12, zap.String("endpoint", "/user/bulk"))
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
	assert.Equal(t, strings.ToLower(a), a)
}
