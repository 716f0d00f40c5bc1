package amqp

import (
	"encoding/json"
	"time"
)

// DatasetChangedMessage announces a new collection version. Consumers
// read the rows from the snapshot store.
type DatasetChangedMessage struct {
	Version   uint64    `json:"version"`
	Rows      int       `json:"rows"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDatasetChangedMessage(version uint64, rows int, operation string) *DatasetChangedMessage {
	return &DatasetChangedMessage{
		Version:   version,
		Rows:      rows,
		Operation: operation,
		Timestamp: time.Now(),
	}
}

func (m *DatasetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DatasetChangedMessageFromJSON(data []byte) (*DatasetChangedMessage, error) {
	var msg DatasetChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
