package model

import "time"

type Step string

const (
	StepWaitChannel     Step = "wait_channel"
	StepWaitName        Step = "wait_name"
	StepWaitPhone       Step = "wait_phone"
	StepWaitRegion      Step = "wait_region"
	StepWaitStudyStatus Step = "wait_study_status"
	StepWaitAgeRange    Step = "wait_age_range"
)

// Session is the transient registration progress of one user.
// A user without a session has either finished registration or never started it.
type Session struct {
	UserID    int64        `json:"user_id"`
	FirstName string       `json:"first_name,omitempty"`
	Step      Step         `json:"step"`
	Profile   ProfileDraft `json:"profile"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type ProfileDraft struct {
	FullName    *string      `json:"full_name,omitempty"`
	PhoneNumber *string      `json:"phone_number,omitempty"`
	Region      *string      `json:"region,omitempty"`
	StudyStatus *StudyStatus `json:"study_status,omitempty"`
	AgeRange    *AgeRange    `json:"age_range,omitempty"`
}

func (d ProfileDraft) Update() ProfileUpdate {
	return ProfileUpdate{
		FullName:    d.FullName,
		PhoneNumber: d.PhoneNumber,
		Region:      d.Region,
		StudyStatus: d.StudyStatus,
		AgeRange:    d.AgeRange,
	}
}

// Clone returns a deep copy so stored sessions never share pointers with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Profile = ProfileDraft{
		FullName:    clonePtr(s.Profile.FullName),
		PhoneNumber: clonePtr(s.Profile.PhoneNumber),
		Region:      clonePtr(s.Profile.Region),
		StudyStatus: clonePtr(s.Profile.StudyStatus),
		AgeRange:    clonePtr(s.Profile.AgeRange),
	}
	return &out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
