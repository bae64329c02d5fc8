package entity

type ConnStatus string

const (
	ConnStatusUninitialized         ConnStatus = "UNINITIALIZED"
	ConnStatusWaitingForCredentials ConnStatus = "WAITING_FOR_CREDENTIALS"
	ConnStatusConnecting            ConnStatus = "CONNECTING"
	ConnStatusAuthenticating        ConnStatus = "AUTHENTICATING"
	ConnStatusStreaming             ConnStatus = "STREAMING"
	ConnStatusBackoff               ConnStatus = "BACKOFF"
)

// ConnectionState is written by the venue connection only; everyone else
// gets read-only snapshots.
type ConnectionState struct {
	Status    ConnStatus `json:"status"`
	LastError string     `json:"last_error,omitempty"`
}

func (s ConnectionState) Streaming() bool {
	return s.Status == ConnStatusStreaming
}
