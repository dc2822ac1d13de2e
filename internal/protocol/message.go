// Package protocol implements the framed JSON wire codec the tracing
// engine and agent connection use to talk to the external core agent:
// a 4-byte big-endian length prefix followed by a UTF-8 JSON object,
// itself a single-key object whose key is the message's discriminator
// and whose value is the message body.
package protocol

// Discriminator identifies a request or response message shape.
type Discriminator string

const (
	Register          Discriminator = "Register"
	ApplicationEvent  Discriminator = "ApplicationEvent"
	StartRequest      Discriminator = "StartRequest"
	FinishRequest     Discriminator = "FinishRequest"
	TagRequest        Discriminator = "TagRequest"
	StartSpan         Discriminator = "StartSpan"
	StopSpan          Discriminator = "StopSpan"
	TagSpan           Discriminator = "TagSpan"
)

// RegisterBody is the Register request body.
type RegisterBody struct {
	App        string `json:"app"`
	Key        string `json:"key"`
	APIVersion string `json:"api_version"`
}

// ApplicationEventBody is the ApplicationEvent request body.
type ApplicationEventBody struct {
	EventValue any    `json:"event_value"`
	EventType  string `json:"event_type"`
	Source     string `json:"source"`
	Timestamp  string `json:"timestamp"`
}

// StartRequestBody is shared by StartRequest and FinishRequest.
type StartRequestBody struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// TagRequestBody is the TagRequest request body.
type TagRequestBody struct {
	RequestID string `json:"request_id"`
	Tag       string `json:"tag"`
	Value     any    `json:"value"`
	Timestamp string `json:"timestamp"`
}

// StartSpanBody is the StartSpan request body. ParentID is omitted
// when the span's parent is the request itself.
type StartSpanBody struct {
	RequestID string  `json:"request_id"`
	SpanID    string  `json:"span_id"`
	ParentID  *string `json:"parent_id,omitempty"`
	Operation string  `json:"operation"`
	Timestamp string  `json:"timestamp"`
}

// StopSpanBody is the StopSpan request body.
type StopSpanBody struct {
	RequestID string `json:"request_id"`
	SpanID    string `json:"span_id"`
	Timestamp string `json:"timestamp"`
}

// TagSpanBody is the TagSpan request body.
type TagSpanBody struct {
	RequestID string `json:"request_id"`
	SpanID    string `json:"span_id"`
	Tag       string `json:"tag"`
	Value     any    `json:"value"`
	Timestamp string `json:"timestamp"`
}

// Application event types emitted by the stats ticker and registration.
const (
	EventScoutMetadata        = "ScoutMetadata"
	EventMemoryUsageMB        = "MemoryUsageMB"
	EventCPUUtilizationPercent = "CPUUtilizationPercent"
)

// Result values carried by a response body.
const (
	ResultSuccess = "Success"
	ResultFailure = "Failure"
)

// ResponseBody is the generic response shape every discriminator
// carries: a matching discriminator (handled at the Envelope level)
// and a result, with an optional message on failure.
type ResponseBody struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// Succeeded reports whether the response indicates success. Unknown
// discriminators decode into this same shape and are treated as
// success iff Result == "Success".
func (r ResponseBody) Succeeded() bool { return r.Result == ResultSuccess }

// TimeFormat is the ISO-8601 UTC millisecond-precision layout used for
// every timestamp on the wire.
const TimeFormat = "2006-01-02T15:04:05.000Z"
