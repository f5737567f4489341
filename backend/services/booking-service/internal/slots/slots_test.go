package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	assert.Equal(t,
		[]string{"09:00-09:30", "09:30-10:00", "10:00-10:30", "10:30-11:00"},
		Generate(9, 11, 30),
	)
	assert.Equal(t, []string{"21:00-22:00", "22:00-23:00", "23:00-24:00"}, Generate(21, 24, 60))
	assert.Equal(t, []string{"08:00-08:45", "08:45-09:30"}, Generate(8, 9, 45))
}

func TestGenerateDefault(t *testing.T) {
	catalog := Default()
	require.Len(t, catalog, 32)
	assert.Equal(t, "06:00-06:30", catalog[0])
	assert.Equal(t, "21:30-22:00", catalog[len(catalog)-1])

	for i := 1; i < len(catalog); i++ {
		_, prevEnd, err := Parse(catalog[i-1])
		require.NoError(t, err)
		start, _, err := Parse(catalog[i])
		require.NoError(t, err)
		assert.Equal(t, prevEnd, start, "slots %d and %d are not contiguous", i-1, i)
	}
}

func TestGenerateCoversWindow(t *testing.T) {
	windows := []struct{ start, end int }{{6, 22}, {0, 24}, {9, 10}}
	for _, step := range []int{5, 10, 15, 20, 30, 60} {
		for _, w := range windows {
			catalog := Generate(w.start, w.end, step)
			require.Len(t, catalog, (w.end-w.start)*60/step, "step %d window %v", step, w)

			first, _, err := Parse(catalog[0])
			require.NoError(t, err)
			assert.Equal(t, w.start*60, first, "step %d window %v", step, w)
			_, last, err := Parse(catalog[len(catalog)-1])
			require.NoError(t, err)
			assert.Equal(t, w.end*60, last, "step %d window %v", step, w)

			prevEnd := first
			for _, label := range catalog {
				start, end, err := Parse(label)
				require.NoError(t, err)
				assert.Equal(t, prevEnd, start, "step %d: %s is not contiguous", step, label)
				assert.Equal(t, step, end-start, "step %d: %s", step, label)
				prevEnd = end
			}
		}
	}
}

func TestGenerateInvalid(t *testing.T) {
	assert.Empty(t, Generate(9, 11, 0))
	assert.Empty(t, Generate(9, 11, -5))
	assert.Empty(t, Generate(9, 11, 61))
	assert.Empty(t, Generate(11, 11, 30))
	assert.Empty(t, Generate(12, 11, 30))
}

func TestParse(t *testing.T) {
	start, end, err := Parse("09:30-10:00")
	require.NoError(t, err)
	assert.Equal(t, 570, start)
	assert.Equal(t, 600, end)

	for _, bad := range []string{"", "0930-1000", "09:30", "10:00-09:30", "9:30-10:00", "09:61-10:00"} {
		_, _, err := Parse(bad)
		assert.ErrorIs(t, err, ErrInvalidLabel, bad)
	}
}

func TestSpan(t *testing.T) {
	catalog := Generate(9, 11, 30)

	span, err := Span(catalog, "09:30-10:00", 30, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30-10:00"}, span)

	span, err = Span(catalog, "09:30-10:00", 45, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30-10:00", "10:00-10:30"}, span)

	span, err = Span(catalog, "09:00-09:30", 120, 30)
	require.NoError(t, err)
	assert.Len(t, span, 4)

	_, err = Span(catalog, "10:30-11:00", 60, 30)
	assert.ErrorIs(t, err, ErrSpanOverflow)

	_, err = Span(catalog, "12:00-12:30", 30, 30)
	assert.ErrorIs(t, err, ErrUnknownSlot)
}

func TestStartTime(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	start, err := StartTime("2025-03-10", "14:30-15:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), start.UTC())

	_, err = StartTime("10-03-2025", "14:30-15:00", loc)
	assert.Error(t, err)
}
