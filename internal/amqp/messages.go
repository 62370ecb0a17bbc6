package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// SyncRequestMessage asks a worker to run a statement sync for one owner.
// An empty SpreadsheetID means "resolve by the configured title".
type SyncRequestMessage struct {
	OwnerID       string    `json:"owner"`
	SpreadsheetID string    `json:"spreadsheetId,omitempty"`
	RequestedAt   time.Time `json:"requestedAt"`
}

var errMissingOwner = errors.New("sync request has no owner")

func NewSyncRequestMessage(ownerID, spreadsheetID string) *SyncRequestMessage {
	return &SyncRequestMessage{
		OwnerID:       ownerID,
		SpreadsheetID: spreadsheetID,
		RequestedAt:   time.Now(),
	}
}

func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncRequestMessageFromJSON decodes and validates a sync request.
func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	msg.OwnerID = strings.TrimSpace(msg.OwnerID)
	msg.SpreadsheetID = strings.TrimSpace(msg.SpreadsheetID)
	if msg.OwnerID == "" {
		return nil, errMissingOwner
	}
	return &msg, nil
}
