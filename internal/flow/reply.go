package flow

import "UD_contest_bot/internal/model"

type ReplyKind string

const (
	// ReplyNone means the event does not belong to the registration flow.
	ReplyNone              ReplyKind = "none"
	ReplyAlreadyRegistered ReplyKind = "already_registered"
	ReplySubscribe         ReplyKind = "subscribe"
	ReplyNotSubscribed     ReplyKind = "not_subscribed"
	ReplyWelcomeBack       ReplyKind = "welcome_back"
	ReplyRestart           ReplyKind = "restart"
	ReplyAskName           ReplyKind = "ask_name"
	ReplyAskPhone          ReplyKind = "ask_phone"
	ReplyPhoneRequired     ReplyKind = "phone_required"
	ReplyOwnContactOnly    ReplyKind = "own_contact_only"
	ReplyPhoneTaken        ReplyKind = "phone_taken"
	ReplyAskRegion         ReplyKind = "ask_region"
	ReplyAskStudyStatus    ReplyKind = "ask_study_status"
	ReplyAskAgeRange       ReplyKind = "ask_age_range"
	ReplyStale             ReplyKind = "stale"
	ReplyCompleted         ReplyKind = "completed"
	ReplyCancelled         ReplyKind = "cancelled"
)

// Reply tells the transport what to show the user after an event.
type Reply struct {
	Kind ReplyKind
	Step model.Step

	// Missing lists the channels the user still has to join, in configured order.
	Missing []model.Channel
	Regions []string

	FullName string

	// Corrective is set when the input did not fit the current step.
	Corrective bool
}

const (
	selectRegion = "region:"
	selectStudy  = "study:"
	selectAge    = "age:"
)

func RegionData(region string) string {
	return selectRegion + region
}

func StudyStatusData(status model.StudyStatus) string {
	return selectStudy + string(status)
}

func AgeRangeData(age model.AgeRange) string {
	return selectAge + string(age)
}

// CheckSubscriptionData is the callback payload of the "check again" button.
const CheckSubscriptionData = "check_subscription"
