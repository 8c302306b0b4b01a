package domain

import (
	"fmt"
	"time"
)

// Layout of the date attribute in the USDM metadata document.
const compactDateLayout = "20060102"

// DatasetDate identifies one weekly USDM release. It is a calendar date with
// no time or zone component, immutable once parsed.
type DatasetDate struct {
	t time.Time
}

// NewDatasetDate builds a DatasetDate from calendar components.
func NewDatasetDate(year int, month time.Month, day int) DatasetDate {
	return DatasetDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDatasetDate parses a date in the portal's compact YYYYMMDD form or
// the hyphenated YYYY-MM-DD form users type on the command line.
func ParseDatasetDate(s string) (DatasetDate, error) {
	for _, layout := range []string{compactDateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DatasetDate{t: t.UTC()}, nil
		}
	}
	return DatasetDate{}, fmt.Errorf("parse dataset date %q: want YYYYMMDD or YYYY-MM-DD", s)
}

// Compact returns the date in the portal's YYYYMMDD form.
func (d DatasetDate) Compact() string {
	return d.t.Format(compactDateLayout)
}

// ArchiveName returns the weekly M-series archive filename for this date,
// e.g. USDM_20140624_M.zip.
func (d DatasetDate) ArchiveName() string {
	return fmt.Sprintf("USDM_%s_M.zip", d.Compact())
}

// Time returns the date as a UTC midnight instant.
func (d DatasetDate) Time() time.Time {
	return d.t
}

// IsZero reports whether the date is the zero value.
func (d DatasetDate) IsZero() bool {
	return d.t.IsZero()
}

// Equal reports whether two dates name the same release.
func (d DatasetDate) Equal(other DatasetDate) bool {
	return d.t.Equal(other.t)
}

func (d DatasetDate) String() string {
	return d.t.Format("2006-01-02")
}
