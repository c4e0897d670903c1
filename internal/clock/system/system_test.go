package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockNow(t *testing.T) {
	c := New()
	now := c.Now()
	require.WithinDuration(t, time.Now().UTC(), now, time.Second)
	require.Equal(t, time.UTC, now.Location())
}
