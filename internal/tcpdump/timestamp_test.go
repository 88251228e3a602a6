package tcpdump

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToEpochSeconds(t *testing.T) {
	got, err := ToEpochSeconds("11:26:43.974019")
	require.NoError(t, err)

	whole, frac := math.Modf(got)
	assert.Equal(t, float64(11*3600+26*60+43), whole)
	assert.InDelta(t, 0.974019, frac, 1e-9)
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("23:59:59.000001")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour-time.Second+time.Microsecond, got)
}

func TestParseTimeOfDayRejectsMalformed(t *testing.T) {
	for _, s := range []string{
		"",
		"11:26:43",
		"11:26:43.97",
		"11:26:43.9740191",
		"1:26:43.974019",
		"25:00:00.000000",
		"11:61:00.000000",
		"11-26-43.974019",
		"IP",
	} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseTimeOfDay(s)
			assert.ErrorIs(t, err, ErrMalformedTimestamp)
		})
	}
}

func TestElapsed(t *testing.T) {
	got, err := Elapsed("10:00:00.000000", "10:00:00.500000")
	require.NoError(t, err)
	assert.Equal(t, 0.5, got)

	got, err = Elapsed("11:00:00.000000", "11:00:00.123456")
	require.NoError(t, err)
	assert.InDelta(t, 0.123456, got, 1e-12)
}

func TestElapsedAcrossMidnightIsNegative(t *testing.T) {
	got, err := Elapsed("23:59:59.900000", "00:00:00.100000")
	require.NoError(t, err)
	assert.InDelta(t, -86399.8, got, 1e-9)
}

func TestElapsedPropagatesParseErrors(t *testing.T) {
	_, err := Elapsed("bogus", "10:00:00.000000")
	assert.ErrorIs(t, err, ErrMalformedTimestamp)

	_, err = Elapsed("10:00:00.000000", "bogus")
	assert.ErrorIs(t, err, ErrMalformedTimestamp)
}
