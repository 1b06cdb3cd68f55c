package logger

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAirdrop_Logger_FormatRFC3339Millis(t *testing.T) {
	t.Parallel()

	// Local-zone timestamps must render as UTC before the Z suffix.
	loc := time.FixedZone("UTC+3", 3*60*60)
	ts := time.Date(2026, 8, 29, 15, 4, 5, 6_000_000, loc)
	require.Equal(t, "2026-08-29T12:04:05.006Z", formatRFC3339Millis(ts))

	utc := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.Equal(t, "2026-01-02T03:04:05.000Z", formatRFC3339Millis(utc))
}

func TestAirdrop_Logger_NewWithWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWithWriter(&buf, false)
	log.Info("distributor ready", "phase", 1)
	require.Contains(t, buf.String(), "distributor ready")

	log.Debug("claim detail")
	require.NotContains(t, buf.String(), "claim detail")

	verbose := NewWithWriter(&buf, true)
	verbose.Debug("claim detail")
	require.Contains(t, buf.String(), "claim detail")
}
