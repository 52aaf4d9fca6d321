package model

import "time"

type UserStatus string

const (
	UserStatusNew        UserStatus = "NEW"
	UserStatusWaitSurvey UserStatus = "WAIT_SURVEY"
	UserStatusActive     UserStatus = "ACTIVE"
)

var statusRank = map[UserStatus]int{
	UserStatusNew:        0,
	UserStatusWaitSurvey: 1,
	UserStatusActive:     2,
}

// Before lists the statuses a user may move from to reach s.
// Status only ever moves forward, so these are the strictly lower ranks.
func (s UserStatus) Before() []UserStatus {
	rank, ok := statusRank[s]
	if !ok {
		return nil
	}

	var out []UserStatus
	for _, candidate := range []UserStatus{UserStatusNew, UserStatusWaitSurvey, UserStatusActive} {
		if statusRank[candidate] < rank {
			out = append(out, candidate)
		}
	}
	return out
}

type User struct {
	TelegramID  int64
	FirstName   string
	Username    string
	FullName    *string
	PhoneNumber *string
	Region      *string
	StudyStatus *StudyStatus
	AgeRange    *AgeRange
	Status      UserStatus
	Referrer    Referrer
	Points      int
	CreatedAt   time.Time
	ActivatedAt *time.Time
}

// DisplayName prefers the name collected during registration.
func (u *User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.FirstName
}

// Referrer records who invited a user. It is fixed when the user is created.
type Referrer struct {
	id  int64
	set bool
}

func Unreferred() Referrer {
	return Referrer{}
}

func ReferredBy(telegramID int64) Referrer {
	return Referrer{id: telegramID, set: true}
}

func ReferrerFromPtr(telegramID *int64) Referrer {
	if telegramID == nil {
		return Unreferred()
	}
	return ReferredBy(*telegramID)
}

func (r Referrer) ID() (int64, bool) {
	return r.id, r.set
}

func (r Referrer) IsReferred() bool {
	return r.set
}

func (r Referrer) Ptr() *int64 {
	if !r.set {
		return nil
	}
	id := r.id
	return &id
}

// ProfileUpdate is a partial profile write. Nil fields are left untouched.
type ProfileUpdate struct {
	FullName    *string
	PhoneNumber *string
	Region      *string
	StudyStatus *StudyStatus
	AgeRange    *AgeRange
}

func (u ProfileUpdate) IsEmpty() bool {
	return u.FullName == nil &&
		u.PhoneNumber == nil &&
		u.Region == nil &&
		u.StudyStatus == nil &&
		u.AgeRange == nil
}

type LeaderboardEntry struct {
	TelegramID int64
	Name       string
	Username   string
	Points     int
	Referrals  int
}
