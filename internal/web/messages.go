package web

import "github.com/MrWong99/woohoo/pkg/loudness"

// Client → server control message types.
const (
	msgReady = "ready"
	msgError = "error"
)

// Server → client message types.
const (
	msgCountdown = "countdown"
	msgReading   = "reading"
	msgResult    = "result"
)

// Reasons a client can report in an error control message.
const (
	reasonPermissionDenied  = "permission_denied"
	reasonDeviceUnavailable = "device_unavailable"
)

// controlMessage is a text frame sent by the browser.
type controlMessage struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sampleRate,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type countdownMessage struct {
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
}

type readingMessage struct {
	Type    string  `json:"type"`
	Score   int     `json:"score"`
	Display int     `json:"display"`
	Peak    int     `json:"peak"`
	Percent float64 `json:"percent"`
}

type resultMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"sessionId"`
	Peak      int           `json:"peak"`
	Tier      loudness.Tier `json:"tier"`
	Label     string        `json:"label"`
	Rewarded  bool          `json:"rewarded"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// errorBody is the JSON body of a failed HTTP request.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// claimBody is the JSON body of POST /api/claim.
type claimBody struct {
	SessionID   string `json:"sessionId"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}
