package websockets

// MessageType defines the type of a WebSocket message.
type MessageType string

const (
	// MessageTypeCreditUpdate is sent after credits land on a balance.
	MessageTypeCreditUpdate MessageType = "creditUpdate"
)

// Message represents a generic WebSocket message.
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// CreditUpdatePayload is the payload for a creditUpdate message.
type CreditUpdatePayload struct {
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id"`
	Plan           string `json:"plan"`
	CreditsGranted int64  `json:"credits_granted"`
	NewBalance     *int64 `json:"new_balance,omitempty"`
}
