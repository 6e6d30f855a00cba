package runtime

import "time"

// Stats is a point-in-time snapshot of client counters.
type Stats struct {
	ClientID     string    `json:"client_id"`
	StartedAt    time.Time `json:"started_at,omitzero"`
	Enqueued     uint64    `json:"enqueued"`
	Written      uint64    `json:"written"`
	BytesWritten uint64    `json:"bytes_written"`
	WriteErrors  uint64    `json:"write_errors"`
	StopRequests uint64    `json:"stop_requests"`
	QueueDepth   int       `json:"queue_depth"`
	QueueCap     int       `json:"queue_capacity"`
	Stopped      bool      `json:"stopped"`
	StopReason   string    `json:"stop_reason,omitempty"`
}

func (c *Client) Stats() Stats {
	s := Stats{
		ClientID:     c.cfg.ClientID,
		Enqueued:     c.enqueued.Load(),
		Written:      c.written.Load(),
		BytesWritten: c.bytesWritten.Load(),
		WriteErrors:  c.writeErrors.Load(),
		StopRequests: c.stopRequests.Load(),
		QueueDepth:   c.queue.Len(),
		QueueCap:     c.queue.Cap(),
		Stopped:      c.stop.Signaled(),
		StopReason:   c.stop.Reason(),
	}
	if ns := c.startAt.Load(); ns > 0 {
		s.StartedAt = time.Unix(0, ns)
	}
	return s
}

func (s Stats) Uptime(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}
