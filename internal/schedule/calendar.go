package schedule

import (
	"fmt"
	"time"

	"github.com/libellus/transit/internal/static/gtfs"
)

// IsServiceActive reports whether a service runs on the YYYYMMDD date.
// A calendar exception for that exact date wins over the weekly pattern.
// An unknown service returns ErrNotFound, which callers should treat as
// "not running".
func (idx *Index) IsServiceActive(serviceID, dateKey string) (bool, error) {
	switch idx.exceptions[exceptionKey{serviceID, dateKey}] {
	case gtfs.ServiceRemoved:
		return false, nil
	case gtfs.ServiceAdded:
		return true, nil
	}

	svc, ok := idx.services[serviceID]
	if !ok {
		return false, fmt.Errorf("service %s: %w", serviceID, ErrNotFound)
	}

	date, err := ParseDateKey(dateKey)
	if err != nil {
		return false, err
	}

	// Keys compare chronologically as strings
	if svc.StartDate != "" && dateKey < svc.StartDate {
		return false, nil
	}
	if svc.EndDate != "" && dateKey > svc.EndDate {
		return false, nil
	}

	return runsOnWeekday(svc, date.Weekday()), nil
}

// ServiceRunsOn is IsServiceActive with unknown services folded into false
func (idx *Index) ServiceRunsOn(serviceID, dateKey string) bool {
	active, err := idx.IsServiceActive(serviceID, dateKey)
	return err == nil && active
}

// HasServiceOn reports whether any service runs on the date
func (idx *Index) HasServiceOn(dateKey string) bool {
	if _, ok := idx.addedDates[dateKey]; ok {
		return true
	}
	for serviceID := range idx.services {
		if idx.ServiceRunsOn(serviceID, dateKey) {
			return true
		}
	}
	return false
}

func runsOnWeekday(svc gtfs.CalendarService, day time.Weekday) bool {
	switch day {
	case time.Monday:
		return svc.Monday
	case time.Tuesday:
		return svc.Tuesday
	case time.Wednesday:
		return svc.Wednesday
	case time.Thursday:
		return svc.Thursday
	case time.Friday:
		return svc.Friday
	case time.Saturday:
		return svc.Saturday
	case time.Sunday:
		return svc.Sunday
	}
	return false
}
