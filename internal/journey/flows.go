package journey

// CreateActivity is the create/edit activity wizard.
var CreateActivity = Linear("createJourney",
	step("category", need("createJourney", func(s *Session) bool { return s.CreateJourney != nil })),
	step("name", need("category", func(s *Session) bool { return s.CreateJourney.Category != nil })),
	step("tier", need("name", func(s *Session) bool { return s.CreateJourney.Name != "" })),
	step("risk-level", need("tierCode", func(s *Session) bool { return s.CreateJourney.TierCode != "" })),
	step("pay-option", need("riskLevel", func(s *Session) bool { return s.CreateJourney.RiskLevel != "" })),
	step("pay", need("paid", func(s *Session) bool { return s.CreateJourney.Paid != nil })),
	step("check-pay"),
	step("start-date", need("pay", func(s *Session) bool {
		j := s.CreateJourney
		return !j.IsPaid() || len(j.Pays) > 0
	})),
	step("end-date-option", need("startDate", func(s *Session) bool { return !s.CreateJourney.StartDate.IsZero() })),
	step("end-date"),
	step("days-and-times"),
	step("bank-holiday-option", need("slots", func(s *Session) bool { return s.CreateJourney.HasSlots() })),
	step("location", need("runsOnBankHoliday", func(s *Session) bool { return s.CreateJourney.RunsOnBankHoliday != nil })),
	step("capacity", need("location", func(s *Session) bool { return s.CreateJourney.InCell || s.CreateJourney.Location != nil })),
	step("check-answers", need("capacity", func(s *Session) bool { return s.CreateJourney.Capacity > 0 })),
)

// Allocate is the allocate/edit allocation wizard.
var Allocate = Linear("allocateJourney",
	step("start-date", need("allocateJourney", func(s *Session) bool {
		return s.AllocateJourney != nil && s.AllocateJourney.Inmate.PrisonerNumber != "" && s.AllocateJourney.Activity.ScheduleID != 0
	})),
	step("end-date-option", need("startDate", func(s *Session) bool { return !s.AllocateJourney.StartDate.IsZero() })),
	step("end-date"),
	step("pay-band"),
	step("check-answers", need("payBand", func(s *Session) bool {
		j := s.AllocateJourney
		return !j.Activity.Paid || j.PayBandID != 0
	})),
)

// Deallocate ends allocations on a schedule.
var Deallocate = Linear("deallocateJourney",
	step("date", need("deallocateJourney", func(s *Session) bool {
		return s.DeallocateJourney != nil && len(s.DeallocateJourney.Allocations) > 0
	})),
	step("reason", need("endDate", func(s *Session) bool { return !s.DeallocateJourney.EndDate.IsZero() })),
	step("check-answers", need("reason", func(s *Session) bool { return s.DeallocateJourney.ReasonCode != "" })),
)

// Waitlist logs a waiting list application.
var Waitlist = Linear("waitListApplicationJourney",
	step("request-date", need("waitListApplicationJourney", func(s *Session) bool {
		return s.WaitlistApplicationJourney != nil && s.WaitlistApplicationJourney.Prisoner.PrisonerNumber != ""
	})),
	step("requester", need("requestDate", func(s *Session) bool { return !s.WaitlistApplicationJourney.RequestDate.IsZero() })),
	step("status", need("requester", func(s *Session) bool { return s.WaitlistApplicationJourney.RequestedBy != "" })),
	step("check-answers", need("status", func(s *Session) bool { return s.WaitlistApplicationJourney.Status != "" })),
)

// CreateAppointment is the create appointment wizard.
var CreateAppointment = Linear("appointmentJourney",
	step("prisoners", need("appointmentJourney", func(s *Session) bool { return s.AppointmentJourney != nil })),
	step("category", need("prisoners", func(s *Session) bool { return len(s.AppointmentJourney.Prisoners) > 0 })),
	step("location", need("category", func(s *Session) bool { return s.AppointmentJourney.Category != nil })),
	step("date-and-time", need("location", func(s *Session) bool { return s.AppointmentJourney.Location != nil })),
	step("repeat", need("startDate", func(s *Session) bool {
		j := s.AppointmentJourney
		return !j.StartDate.IsZero() && j.StartTime != nil && j.EndTime != nil
	})),
	step("repeat-frequency-and-count", need("repeat", func(s *Session) bool { return s.AppointmentJourney.Repeat != nil })),
	step("comment", need("repeatFrequency", func(s *Session) bool {
		j := s.AppointmentJourney
		return !j.Repeats() || (j.Frequency != "" && j.NumberOfAppointments > 0)
	})),
	step("check-answers"),
)

func editing(s *Session) bool {
	return s.EditAppointmentJourney != nil && s.EditAppointmentJourney.AppointmentID != 0 && len(s.EditAppointmentJourney.Occurrences) > 0
}

// EditAppointment edits one occurrence of a series, possibly applying to others.
var EditAppointment = Branches("editAppointmentJourney",
	step("location", need("editAppointmentJourney", editing)),
	step("date-and-time", need("editAppointmentJourney", editing)),
	step("cancel/reason", need("editAppointmentJourney", editing)),
	step("uncancel", need("editAppointmentJourney", editing)),
	step("prisoners/add", need("editAppointmentJourney", editing)),
	step("prisoners/remove", need("editAppointmentJourney", editing)),
	step("apply-to",
		need("editAppointmentJourney", editing),
		need("property", func(s *Session) bool { return s.EditAppointmentJourney.Property != "" })),
)
