package loan

import "time"

// BusinessDateProvider supplies the ledger's business date. The domain never
// reads the wall clock itself.
type BusinessDateProvider interface {
	BusinessDate() time.Time
}

type FixedBusinessDate time.Time

func (d FixedBusinessDate) BusinessDate() time.Time {
	return truncateDate(time.Time(d))
}

// SystemBusinessDate derives the business date from the wall clock in a
// configured location.
type SystemBusinessDate struct {
	Location *time.Location
	Now      func() time.Time
}

func (s SystemBusinessDate) BusinessDate() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	t := now().In(loc)
	return Date(t.Year(), t.Month(), t.Day())
}
