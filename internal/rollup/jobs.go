package rollup

import (
	"context"
	"fmt"
	"time"

	"absensi/internal/queue"
)

// JobType marks queue messages that request a summary refresh.
const JobType = "rollup"

// Enqueuer defers refreshes to the worker by publishing a job per clock-in.
type Enqueuer struct {
	q queue.Queue
}

// NewEnqueuer publishes refresh jobs on q.
func NewEnqueuer(q queue.Queue) *Enqueuer {
	return &Enqueuer{q: q}
}

// Refresh publishes a job carrying day with its UTC offset.
func (e *Enqueuer) Refresh(ctx context.Context, day time.Time) error {
	return e.q.Publish(ctx, queue.Message{Type: JobType, Body: []byte(day.Format(time.RFC3339))})
}

// DecodeJob reads the day out of a refresh job.
func DecodeJob(msg queue.Message) (time.Time, error) {
	if msg.Type != JobType {
		return time.Time{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	return time.Parse(time.RFC3339, string(msg.Body))
}
