package types

// GenerateRequest is the body POSTed to the inference service's /api/generate.
type GenerateRequest struct {
	// Model identifier known to the inference service.
	// example: mistral
	Model string `json:"model" example:"mistral"`
	// Prompt text forwarded verbatim.
	// example: what is 2+2
	Prompt string `json:"prompt" example:"what is 2+2"`
}

// StreamMessage is one newline-delimited JSON object of a streamed generate response.
type StreamMessage struct {
	// Model that produced the fragment.
	Model string `json:"model"`
	// Opaque timestamp as sent by the service.
	CreatedAt string `json:"created_at"`
	// Incremental text fragment.
	Response string `json:"response"`
	// True on the terminating message; its Response is ignored.
	Done bool `json:"done"`
}

// CommandRequest is accepted by the admin POST /command endpoint.
type CommandRequest struct {
	// Full chat text including the trigger.
	// example: !llama ask mistral what is 2+2
	Text string `json:"text" example:"!llama ask mistral what is 2+2"`
}

// CommandResponse carries the reply the bot would publish to the room.
type CommandResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Matrix user id the bot is logged in as (empty before login).
	UserID string `json:"user_id"`
	// Homeserver base URL.
	Homeserver string `json:"homeserver"`
	// Inference endpoint ask commands are sent to.
	Endpoint string `json:"endpoint"`
	// Supported model identifiers.
	Models []string `json:"models"`
	// True once the first sync completed.
	Ready bool `json:"ready"`
	// Number of ask commands currently waiting on the inference service.
	InflightAsks int64 `json:"inflight_asks"`
	// Uptime of the process in seconds.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}
