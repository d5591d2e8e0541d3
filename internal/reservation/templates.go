package reservation

// Template names a notification message shape.
type Template string

const (
	TemplateRequested       Template = "RESERVATION_REQUESTED"
	TemplateApproved        Template = "RESERVATION_APPROVED"
	TemplateRejected        Template = "RESERVATION_REJECTED"
	TemplateCanceled        Template = "RESERVATION_CANCELED"
	TemplateUpdateRequested Template = "RESERVATION_UPDATE_REQUESTED"
	TemplateUpdated         Template = "RESERVATION_UPDATED"
	TemplateInvited         Template = "RESERVATION_INVITED"
	TemplateStartSoon       Template = "RESERVATION_START_SOON"
	TemplateEndSoon         Template = "RESERVATION_END_SOON"
	TemplateReturnPending   Template = "RESERVATION_RETURN_PENDING"
)

// ReminderKind identifies one of the scheduled reminder sweeps.
type ReminderKind string

const (
	ReminderStartSoon     ReminderKind = "START_SOON"
	ReminderEndSoon       ReminderKind = "END_SOON"
	ReminderReturnPending ReminderKind = "RETURN_PENDING"
)

// Template returns the message template sent for the reminder.
func (k ReminderKind) Template() Template {
	switch k {
	case ReminderStartSoon:
		return TemplateStartSoon
	case ReminderEndSoon:
		return TemplateEndSoon
	case ReminderReturnPending:
		return TemplateReturnPending
	}
	return ""
}
