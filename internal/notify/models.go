// internal/notify/models.go
package notify

// Channel is an outbound message protocol marker.
type Channel string

const (
	ChannelText  Channel = "TEXT"
	ChannelEmail Channel = "EMAIL"
)

// MessagePurposeConfirmation marks automated appointment-confirmation sends.
const MessagePurposeConfirmation = "AC"

// Request describes one notification attempt for a scheduled appointment.
type Request struct {
	DepartmentID string
	CustomerID   string

	CustomerFirstName string
	CustomerLastName  string
	DealerName        string
	ApptDate          string // YYYY-MM-DD
	ApptTime          string // HH:MM:SS

	Channels []Channel
	SenderID string // optional; resolved via default-associate lookup when empty
}

// Outcome is the per-channel result of a notification attempt.
type Outcome struct {
	Status   string // models.NotifyStatus*
	Response string // raw response status or error text
}

// Result aggregates per-channel outcomes into an overall status.
type Result struct {
	Text    Outcome
	Email   Outcome
	Overall string // models.Overall*
}

// Config holds channel toggles and outbound message flags.
type Config struct {
	TextEnabled   bool
	EmailEnabled  bool
	AddTCPAFooter bool
	AddSignature  bool
	AddFooter     bool
}
