package audithook

// Action constants for audit events.
const (
	// Session actions
	ActionSessionCreated   = "session.created"
	ActionSessionActivated = "session.activated"
	ActionSessionSettled   = "session.settled"

	// Membership actions
	ActionParticipantJoined = "participant.joined"

	// Settlement actions
	ActionSettlementRecorded = "settlement.recorded"
)

// Resource constants for audit events.
const (
	ResourceSession    = "session"
	ResourceSettlement = "settlement"
)

// Category constants for audit events.
const (
	CategorySession    = "session"
	CategoryMembership = "membership"
	CategorySettlement = "settlement"
)

// Severity and outcome stamped on every audit event.
const (
	SeverityInfo   = "info"
	OutcomeSuccess = "success"
)
