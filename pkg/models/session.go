package models

import (
	"time"
)

// SessionStatus defines the possible states of a payment session.
type SessionStatus string

const (
	PENDING   SessionStatus = "pending"
	COMPLETED SessionStatus = "completed"
	FAILED    SessionStatus = "failed"
	EXPIRED   SessionStatus = "expired"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s SessionStatus) IsTerminal() bool {
	return s == COMPLETED || s == FAILED || s == EXPIRED
}

// PaymentSession is one provider checkout attempt tied to one plan purchase.
// Credits, Amount and Currency are copied from the plan when the session is
// created and are never re-read from the catalog.
type PaymentSession struct {
	SessionId   string        `json:"session_id" dynamodbav:"session_id"`
	UserId      string        `json:"user_id" dynamodbav:"user_id"`
	Plan        PlanName      `json:"plan" dynamodbav:"plan"`
	Credits     int64         `json:"credits" dynamodbav:"credits"`
	Amount      int64         `json:"amount" dynamodbav:"amount"`
	Currency    string        `json:"currency" dynamodbav:"currency"`
	Email       string        `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Status      SessionStatus `json:"status" dynamodbav:"status"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty" dynamodbav:"processed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" dynamodbav:"updated_at"`
}
