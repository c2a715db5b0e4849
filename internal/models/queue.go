package models

import "time"

// QueueItem is one submission awaiting delivery.
type QueueItem struct {
	ID         string          `json:"id"`
	Candidate  CandidateRecord `json:"candidate"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Retries    int             `json:"retries"`
}

// QueueRecord is the single durable record holding the pending queue.
// The whole record is replaced on every mutation, which is what makes the
// drain's read-modify-write atomic with respect to concurrent enqueues.
type QueueRecord struct {
	Key       string      `json:"key" badgerhold:"key"`
	Items     []QueueItem `json:"items"`
	UpdatedAt time.Time   `json:"updated_at"`
}
