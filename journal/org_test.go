package journal

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTradeOrg(t *testing.T) {
	closeT := time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)
	s := FormatTradeOrg(testTrade("01HXABCDEFGHJK", "R1", closeT, -4))

	assert.True(t, strings.HasPrefix(s, "** Trade: PETR4 buy (01HXABCD)\n"))
	assert.Contains(t, s, ":TRADE_ID: 01HXABCDEFGHJK\n")
	assert.Contains(t, s, ":RUN_ID: R1\n")
	assert.Contains(t, s, ":ENTRY_PRICE: 100.00000\n")
	assert.Contains(t, s, ":NET_PCT: -4.00\n")
	assert.Contains(t, s, ":CLOSE_TIME: 2024-01-02T16:00:00Z\n")
	assert.Contains(t, s, ":REASON: StopLoss\n")
	assert.True(t, strings.HasSuffix(s, ":END:\n"))
}

func TestFormatTradesOrg(t *testing.T) {
	closeT := time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)
	s := FormatTradesOrg([]TradeRecord{
		testTrade("A", "", closeT, 1),
		testTrade("B", "", closeT, 2),
	})
	assert.Equal(t, 2, strings.Count(s, "** Trade:"))
	assert.Contains(t, s, ":END:\n\n** Trade:")
	assert.NotContains(t, s, ":RUN_ID:")

	assert.Empty(t, FormatTradesOrg(nil))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("123456789"))
}

func TestRunOrg(t *testing.T) {
	r := testRun("R9", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), math.Inf(1))
	r.Mode = "paper"
	r.Notes = []string{"quiet session"}
	r.NextActions = []string{"widen stop"}

	s, err := r.FormatOrg()
	require.NoError(t, err)
	assert.Contains(t, s, "* PAPER: sma-cross PETR4, VALE3")
	assert.Contains(t, s, ":PROFIT_FAC:  inf")
	assert.Contains(t, s, ":CREATED:     [2024-05-01 Wed 12:00]")
	assert.Contains(t, s, "| Risk per Trade % | 1.00 |")
	assert.Contains(t, s, "- quiet session")
	assert.Contains(t, s, "- [ ] widen stop")

	r.OrgPath = filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, r.SaveOrg())
	b, err := os.ReadFile(r.OrgPath)
	require.NoError(t, err)
	assert.Equal(t, s, string(b))

	r.OrgPath = ""
	assert.Error(t, r.SaveOrg())
}
