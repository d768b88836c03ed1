package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Participant represents a registered auction participant. The ParticipantID
// is the opaque identifier handed to the client at registration and used as a
// bearer credential on every later request. All fields except Tokens are
// fixed at registration time.
type Participant struct {
	ID                  uint            `gorm:"primaryKey" json:"-"`
	ParticipantID       string          `gorm:"uniqueIndex;size:36;not null" json:"participantId"`
	FirstName           string          `gorm:"size:50;not null" json:"first_name"`
	LastName            string          `gorm:"size:50;not null" json:"last_name"`
	Role                string          `gorm:"size:20;not null" json:"role"`
	InitialMoney        decimal.Decimal `gorm:"type:decimal(20,8)" json:"initial_money"`
	Water               decimal.Decimal `gorm:"type:decimal(20,8)" json:"water"`
	MarginalValueFirst  decimal.Decimal `gorm:"type:decimal(20,8)" json:"marginal_value_first"`
	MarginalValueSecond decimal.Decimal `gorm:"type:decimal(20,8)" json:"marginal_value_second"`
	Tokens              decimal.Decimal `gorm:"type:decimal(20,8);default:0" json:"tokens"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Participant model
func (Participant) TableName() string {
	return "participants"
}

// ParticipantResponse stores a participant's free-text questionnaire answers.
// A repeated submission overwrites the previous one.
type ParticipantResponse struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	ParticipantID string    `gorm:"uniqueIndex;size:36;not null" json:"participantId"`
	Answer1       string    `gorm:"type:text" json:"answer1"`
	Answer2       string    `gorm:"type:text" json:"answer2"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for ParticipantResponse model
func (ParticipantResponse) TableName() string {
	return "participant_responses"
}
