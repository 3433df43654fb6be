package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToday(t *testing.T) {
	// 22:30 UTC on the 31st is already the 1st in Vilnius.
	fixed := FixedTime{At: time.Date(2024, time.May, 31, 22, 30, 0, 0, time.UTC)}
	require.Equal(t, "2024-06-01", Today(fixed))
	require.Equal(t, Vilnius(), fixed.Now().Location())
}

func TestStandardTime(t *testing.T) {
	now := NewStandardTime().Now()
	require.Equal(t, "Europe/Vilnius", now.Location().String())
	require.WithinDuration(t, time.Now(), now, time.Second)
}
