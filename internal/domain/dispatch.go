package domain

import "time"

type DispatchStatus string

const (
	DispatchSent   DispatchStatus = "sent"
	DispatchFailed DispatchStatus = "failed"
)

// DispatchLog records one outbound newsletter message.
type DispatchLog struct {
	ID        string         `json:"id"`
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject"`
	Provider  string         `json:"provider"`
	Status    DispatchStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	SentAt    time.Time      `json:"sent_at"`
}
