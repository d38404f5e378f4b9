// WebSocket frame types for the script streaming endpoint.
package dto

// Event frame types.
const (
	EventOutput = "output"
	EventStatus = "status"
)

// Session status values carried by status events.
const (
	StatusStarted  = "started"
	StatusFinished = "finished"
	StatusStopped  = "stopped"
	StatusError    = "error"
)

// Event is a server-to-client frame on a script session socket.
type Event struct {
	Type string `json:"type"`
	// Output fields.
	Stream string `json:"stream,omitempty"` // "stdout" or "stderr"
	Data   string `json:"data,omitempty"`
	// Status fields.
	Status     string `json:"status,omitempty"`
	Script     string `json:"script,omitempty"`
	Message    string `json:"message,omitempty"`
	ReturnCode *int   `json:"returncode,omitempty"`
}

// Client-to-server actions.
const (
	ActionInput = "input"
	ActionStop  = "stop"
)

// Action is a client-to-server frame on a script session socket.
type Action struct {
	Action string `json:"action"`
	Data   string `json:"data,omitempty"`
}
