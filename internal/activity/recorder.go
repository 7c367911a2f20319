package activity

import (
	"context"
	"encoding/json"

	"github.com/N8Nexus-ai/product/platform/logger"

	"github.com/google/uuid"
)

// Writer is the persistence dependency of the Recorder.
type Writer interface {
	Insert(ctx context.Context, leadID uuid.UUID, activityType, description string, payload json.RawMessage) (*Activity, error)
}

// Recorder writes activity entries best-effort. A failed write is logged
// and never propagates, so the pipeline stays live when the audit trail
// cannot be written.
type Recorder struct {
	writer Writer
	log    *logger.Logger
}

// NewRecorder creates a best-effort activity recorder.
func NewRecorder(writer Writer, log *logger.Logger) *Recorder {
	return &Recorder{writer: writer, log: log}
}

// Record appends one activity entry with no payload.
func (r *Recorder) Record(ctx context.Context, leadID uuid.UUID, activityType, description string) {
	r.RecordPayload(ctx, leadID, activityType, description, nil)
}

// RecordPayload appends one activity entry with a structured payload.
// The payload must be JSON-marshalable; a marshal failure drops the payload
// but keeps the entry.
func (r *Recorder) RecordPayload(ctx context.Context, leadID uuid.UUID, activityType, description string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			r.log.Warn("activity_payload_marshal_failed",
				"lead_id", leadID.String(),
				"type", activityType,
				"error", err.Error(),
			)
		} else {
			raw = data
		}
	}

	if _, err := r.writer.Insert(ctx, leadID, activityType, description, raw); err != nil {
		r.log.Error("activity_write_failed",
			"lead_id", leadID.String(),
			"type", activityType,
			"error", err.Error(),
		)
	}
}
