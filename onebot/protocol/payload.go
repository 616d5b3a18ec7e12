package protocol

import (
	"encoding/json"
	"fmt"
)

// PayloadKind discriminates which shape an untagged Payload decoded as.
type PayloadKind string

const (
	PayloadRequest  PayloadKind = "request"
	PayloadResponse PayloadKind = "response"
	PayloadEvent    PayloadKind = "event"
)

// Payload is a frame read off an OneBot WebSocket connection, which may be a
// Request (only ever sent by us, but a misbehaving client could echo one
// back), a Response to a prior Request, or an Event pushed by the remote
// side. The wire has no discriminator field shared by all three, so the
// decoder sniffs which keys are present, matching serde's untagged enum
// resolution order (first variant whose shape matches).
type Payload struct {
	Kind     PayloadKind
	Request  *Request
	Response json.RawMessage // deferred: needs the originating Action to decode typed data
	Event    *Event
}

type payloadHead struct {
	PostType PostType `json:"post_type"`
	Action   *Action  `json:"action"`
	Status   *Status  `json:"status"`
	Retcode  *int32   `json:"retcode"`
}

// UnmarshalJSON implements the untagged Request|Response|Event resolution.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var head payloadHead
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("sniff payload shape: %w", err)
	}
	switch {
	case head.PostType != "":
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return fmt.Errorf("decode event payload: %w", err)
		}
		p.Kind, p.Event = PayloadEvent, &ev
	case head.Status != nil && head.Retcode != nil:
		p.Kind, p.Response = PayloadResponse, data
	case head.Action != nil:
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("decode request payload: %w", err)
		}
		p.Kind, p.Request = PayloadRequest, &req
	default:
		return fmt.Errorf("unrecognized payload shape: %s", data)
	}
	return nil
}

// MarshalJSON re-emits whichever variant is populated.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PayloadRequest:
		return json.Marshal(p.Request)
	case PayloadResponse:
		return p.Response, nil
	case PayloadEvent:
		return json.Marshal(p.Event)
	default:
		return nil, fmt.Errorf("empty payload")
	}
}
