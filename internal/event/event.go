package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Type tags an envelope as a resource addition, update or removal.
type Type string

// Envelope types.
const (
	TypeAdd    Type = "add"
	TypeUpdate Type = "update"
	TypeDelete Type = "delete"
)

// CreationTimeLayout is the envelope timestamp format.
const CreationTimeLayout = "2006-01-02T15:04:05Z"

// Greeting is written to every new subscriber before any event.
const Greeting = ": hi\n\n"

// Change is one envelope's worth of payload, before it is stamped.
type Change struct {
	Type Type
	Data []any
}

// Add returns an add change carrying data.
func Add(data ...any) Change { return Change{Type: TypeAdd, Data: data} }

// Update returns an update change carrying data.
func Update(data ...any) Change { return Change{Type: TypeUpdate, Data: data} }

// Delete returns a delete change carrying data.
func Delete(data ...any) Change { return Change{Type: TypeDelete, Data: data} }

// Envelope is a stamped change as it appears on the event stream.
type Envelope struct {
	CreationTime string `json:"creationtime"`
	ID           string `json:"id"`
	Type         Type   `json:"type"`
	Data         []any  `json:"data"`
}

// Message is every envelope produced by one logical operation.
type Message struct {
	ID        uint64
	Envelopes []Envelope
}

// Stamp turns a change into an envelope.
func Stamp(c Change, now time.Time, id string) Envelope {
	data := c.Data
	if data == nil {
		data = []any{}
	}
	return Envelope{
		CreationTime: now.UTC().Format(CreationTimeLayout),
		ID:           id,
		Type:         c.Type,
		Data:         data,
	}
}

// Frame encodes the message as one server-sent-events record.
func (m Message) Frame() ([]byte, error) {
	payload, err := json.Marshal(m.Envelopes)
	if err != nil {
		return nil, fmt.Errorf("encoding envelopes: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "id: %d:0\ndata: ", m.ID)
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}
