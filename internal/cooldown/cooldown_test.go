package cooldown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	base := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	now := base

	tr := New(10 * time.Minute)
	tr.now = func() time.Time { return now }

	require.NoError(t, tr.Check("d1"))

	until := tr.Start("d1")
	assert.Equal(t, base.Add(10*time.Minute), until)

	err := tr.Check("d1")
	var active *ActiveError
	require.ErrorAs(t, err, &active)
	assert.Equal(t, until, active.Until)
	assert.NoError(t, tr.Check("d2"), "other devices are unaffected")

	now = base.Add(11 * time.Minute)
	assert.NoError(t, tr.Check("d1"))

	now = base
	tr.Start("d1")
	tr.Reset("d1")
	assert.NoError(t, tr.Check("d1"))
}

func TestNew_DefaultPeriod(t *testing.T) {
	tr := New(0)
	assert.Equal(t, DefaultPeriod, tr.period)
}
