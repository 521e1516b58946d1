package models

// ChannelKind names one of the three real-time status channels.
type ChannelKind string

const (
	ChannelFile         ChannelKind = "file"
	ChannelReport       ChannelKind = "report"
	ChannelNotification ChannelKind = "notification"
)

// FileStatusMessage is pushed on the file channel when the worker makes
// progress on a document.
type FileStatusMessage struct {
	FileID string      `json:"fileId"`
	Status StatusPatch `json:"status"`
}

// ReportStatusMessage is pushed on the report channel.
type ReportStatusMessage struct {
	ReportID string      `json:"reportId"`
	Status   StatusPatch `json:"status"`
}

// Handshake is the single subscription frame a client sends after the
// socket opens. Exactly one field is set, depending on the channel.
type Handshake struct {
	ApplicantID   string `json:"applicantId,omitempty"`
	ApplicationID string `json:"applicationId,omitempty"`
	UserID        string `json:"userId,omitempty"`
}

// PingUserID is the userId value of a notification keep-alive frame.
const PingUserID = "ping"

// PongFrame is the relay's reply to a keep-alive frame.
const PongFrame = "pong"

// NewHandshake builds the handshake frame for kind and key.
func NewHandshake(kind ChannelKind, key string) Handshake {
	switch kind {
	case ChannelFile:
		return Handshake{ApplicantID: key}
	case ChannelReport:
		return Handshake{ApplicationID: key}
	default:
		return Handshake{UserID: key}
	}
}

// Key returns the subscription key carried by h for kind.
func (h Handshake) Key(kind ChannelKind) string {
	switch kind {
	case ChannelFile:
		return h.ApplicantID
	case ChannelReport:
		return h.ApplicationID
	default:
		return h.UserID
	}
}
