package streams

// Stream name constants
const (
	StreamReportEvents = "report:events"
)

// Consumer group constants
const (
	GroupMailers = "report-mailers"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// Event type constants
const (
	EventReportCompleted = "report.completed"
	EventReportFailed    = "report.failed"
)

// ReportEvent is published when a background report job finishes.
type ReportEvent struct {
	Type          string `json:"type"`
	JobID         string `json:"job_id"`
	UserID        uint   `json:"user_id"`
	PreparationID string `json:"preparation_id"`
	Error         string `json:"error,omitempty"`
}
