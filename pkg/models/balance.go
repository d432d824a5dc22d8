package models

import "time"

// UserBalance is the credit balance of a single user. It is created lazily by
// the first grant.
type UserBalance struct {
	UserId        string    `json:"user_id" dynamodbav:"user_id"`
	CreditBalance int64     `json:"credit_balance" dynamodbav:"credit_balance"`
	Version       int64     `json:"version" dynamodbav:"version"`
	CreatedAt     time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// LedgerEntry is the append-only audit record written with every grant.
type LedgerEntry struct {
	EntryID     string    `dynamodbav:"entry_id"`
	SessionID   string    `dynamodbav:"session_id"`
	UserID      string    `dynamodbav:"user_id"`
	Plan        PlanName  `dynamodbav:"plan"`
	Credits     int64     `dynamodbav:"credits"`
	Description string    `dynamodbav:"description"`
	Timestamp   time.Time `dynamodbav:"timestamp"`
	GSI1PK      string    `dynamodbav:"gsi1pk"`
}

// LedgerPartition is the constant partition key of the ledger timeline index.
const LedgerPartition = "LEDGER_ENTRIES"

// GrantEntryID derives the ledger entry id for the grant of a session. One
// session can only ever produce one grant entry.
func GrantEntryID(sessionID string) string {
	return "grant#" + sessionID
}
