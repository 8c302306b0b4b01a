package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestSetClock_FreezesAndResets(t *testing.T) {
	frozen := time.Date(2014, time.June, 24, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() {
		SetClock(nil)
	})

	assert.Equal(t, frozen, Now())

	SetClock(nil)
	assert.WithinDuration(t, time.Now(), Now(), time.Second)
}
