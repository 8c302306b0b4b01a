package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatasetDate_Compact(t *testing.T) {
	d, err := ParseDatasetDate("20140624")
	require.NoError(t, err)

	assert.Equal(t, "2014-06-24", d.String())
	assert.Equal(t, "20140624", d.Compact())
	assert.Equal(t, time.Date(2014, time.June, 24, 0, 0, 0, 0, time.UTC), d.Time())
}

func TestParseDatasetDate_Hyphenated(t *testing.T) {
	d, err := ParseDatasetDate("2014-06-24")
	require.NoError(t, err)
	assert.True(t, d.Equal(NewDatasetDate(2014, time.June, 24)))
}

func TestParseDatasetDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "latest", "2014/06/24", "201406", "20141350"} {
		_, err := ParseDatasetDate(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestDatasetDate_ArchiveName(t *testing.T) {
	d := NewDatasetDate(2014, time.June, 24)
	assert.Equal(t, "USDM_20140624_M.zip", d.ArchiveName())
}

func TestDatasetDate_IsZero(t *testing.T) {
	assert.True(t, DatasetDate{}.IsZero())
	assert.False(t, NewDatasetDate(2014, time.June, 24).IsZero())
}
