package appointments

import (
	"fmt"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"activities/internal/domain"
	"activities/internal/simpledate"
)

const productID = "-//activities//appointment series//EN"

// Calendar renders every appointment of a series as a VEVENT. Cancelled appointments
// are kept with STATUS:CANCELLED so calendar clients drop them.
func Calendar(series domain.AppointmentSeries, host string, loc *time.Location, now time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(series.Category.Description)

	where := ""
	if series.InternalLocation != nil {
		where = series.InternalLocation.Description
	}

	for _, a := range series.Appointments {
		start, end, err := span(a, loc)
		if err != nil {
			return "", fmt.Errorf("appointment %d: %w", a.ID, err)
		}
		ev := cal.AddEvent(fmt.Sprintf("appointment-%d@%s", a.ID, host))
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(series.Category.Description)
		if where != "" {
			ev.SetLocation(where)
		}
		ev.SetProperty(ical.ComponentPropertySequence, strconv.Itoa(a.SequenceNumber))
		ev.SetDescription(fmt.Sprintf("Appointment %d of %d", a.SequenceNumber, len(series.Appointments)))
		if a.IsCancelled {
			ev.SetStatus(ical.ObjectStatusCancelled)
		} else {
			ev.SetStatus(ical.ObjectStatusConfirmed)
		}
	}
	return cal.Serialize(), nil
}

func span(a domain.AppointmentSummary, loc *time.Location) (time.Time, time.Time, error) {
	day, err := simpledate.ParseISO(a.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from, err := simpledate.ParseTime(a.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := from.On(day, loc)
	if a.EndTime == "" {
		return start, start.Add(time.Hour), nil
	}
	to, err := simpledate.ParseTime(a.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, to.On(day, loc), nil
}
