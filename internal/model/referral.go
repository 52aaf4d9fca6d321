package model

import (
	"time"

	"github.com/google/uuid"
)

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "PENDING"
	ReferralStatusConfirmed ReferralStatus = "CONFIRMED"
)

const (
	RegistrationBonus       = 10
	ReferralBonus           = 10
	RegistrationBonusReason = "Registration Bonus"
)

func ReferralBonusReason(refereeFirstName string) string {
	return "Referral: " + refereeFirstName
}

type Referral struct {
	ID          uuid.UUID
	ReferrerID  int64
	RefereeID   int64
	Status      ReferralStatus
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

type ReferralStats struct {
	TelegramID     int64
	Pending        int
	Confirmed      int
	RecentReferees []string
}

// RegistrationEvent is published once a user finishes registration.
type RegistrationEvent struct {
	TelegramID  int64     `json:"telegram_id"`
	FullName    string    `json:"full_name"`
	Region      string    `json:"region"`
	ReferrerID  *int64    `json:"referrer_id,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
