package model

// Channel is a chat every participant has to join before filling the survey.
type Channel struct {
	ChatID int64
	Name   string
	Link   string
}
