package api

// Response is the JSON envelope shared by every endpoint: data on
// success, a message on failure, never both.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewDataResponse wraps a payload in a success envelope.
func NewDataResponse(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// NewErrorResponse wraps a failure message in the envelope.
func NewErrorResponse(message string) Response {
	return Response{Success: false, Error: message}
}

// Command is a client request on the dashboard websocket. CameraID of ""
// subscribes to all cameras; IntervalMs below 1 falls back to the default
// push interval.
type Command struct {
	CameraID   string `json:"cameraId"`
	IntervalMs int    `json:"intervalMs"`
}
