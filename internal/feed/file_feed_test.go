package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func writeCSV(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))
	return path
}

func TestFileFeed_GroupsRowsWithSameTimestamp(t *testing.T) {
	path := writeCSV(t, "time,ticker,open,high,low,close,volume\n"+
		"2024-01-01T00:00:00Z,BTCUSDT,100,101,99,100.5,10\n"+
		"2024-01-01T00:00:00Z,ETHUSDT,50,51,49,50.5,20\n"+
		"2024-01-01T00:01:00Z,BTCUSDT,100.5,102,100,101,15\n")

	f, err := NewFileFeed(path)
	require.NoError(t, err)
	defer f.Close()

	set1, ok := f.Next()
	require.True(t, ok)
	assert.Len(t, set1.Bars, 2)
	assert.True(t, set1.Bars["BTCUSDT"].Close.Equal(dec("100.5")))

	set2, ok := f.Next()
	require.True(t, ok)
	assert.Len(t, set2.Bars, 1)

	_, ok = f.Next()
	assert.False(t, ok)
}

func TestFileFeed_SkipsHeaderRow(t *testing.T) {
	path := writeCSV(t, "time,ticker,open,high,low,close,volume\n"+
		"2024-01-01T00:00:00Z,BTCUSDT,100,101,99,100.5,10\n")

	f, err := NewFileFeed(path)
	require.NoError(t, err)
	defer f.Close()

	set, ok := f.Next()
	require.True(t, ok)
	assert.Contains(t, set.Bars, "BTCUSDT")
}
