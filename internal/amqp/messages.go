package amqp

import (
	"encoding/json"
	"time"
)

// SyncRequest asks the worker to push one owner's ledger to the remote
// store. It carries only the owner and a local revision counter, the
// worker reads the full ledger from the database.
type SyncRequest struct {
	Owner     string    `json:"owner"`
	Revision  int64     `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncRequest(owner string, revision int64) *SyncRequest {
	return &SyncRequest{
		Owner:     owner,
		Revision:  revision,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the request to JSON bytes
func (m *SyncRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncRequestFromJSON creates a request from JSON bytes
func SyncRequestFromJSON(data []byte) (*SyncRequest, error) {
	var msg SyncRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
