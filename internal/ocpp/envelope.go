// OCPP envelope codec. Frames are positional JSON arrays:
//
//	[2,"<uniqueId>","<action>",{...}]   CALL
//	[3,"<uniqueId>",{...}]             CALLRESULT
//	[4,"<uniqueId>","<code>","<description>",{...}?]  CALLERROR
package ocpp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	MsgTypeCall       = 2
	MsgTypeCallResult = 3
	MsgTypeCallError  = 4
)

// Error codes carried in CallError frames.
const (
	ErrorCode_FormationViolation = "FormationViolation"
	ErrorCode_ProtocolError      = "ProtocolError"
	ErrorCode_InternalError      = "InternalError"
	ErrorCode_NotSupported       = "NotSupported"
	ErrorCode_SecurityError      = "SecurityError"
	ErrorCode_Timeout            = "Timeout"
	ErrorCode_Cancelled          = "Cancelled"
)

// SyntheticUniqueId is used when replying to a frame whose uniqueId could not
// be recovered.
const SyntheticUniqueId = "-1"

var ErrMalformedEnvelope = errors.New("malformed ocpp envelope")

// Envelope is the decoded wire unit, tagged by MessageTypeId.
// Action is set for CALL only; ErrorCode/ErrorDescription/ErrorDetails for
// CALLERROR only.
type Envelope struct {
	MessageTypeId    int
	UniqueId         string
	Action           string
	Payload          json.RawMessage
	ErrorCode        string
	ErrorDescription string
	ErrorDetails     json.RawMessage
}

func Call(uniqueId string, action string, payload json.RawMessage) Envelope {
	return Envelope{MessageTypeId: MsgTypeCall, UniqueId: uniqueId, Action: action, Payload: payload}
}

func CallResult(uniqueId string, payload json.RawMessage) Envelope {
	return Envelope{MessageTypeId: MsgTypeCallResult, UniqueId: uniqueId, Payload: payload}
}

func CallError(uniqueId string, errorCode string, errorDescription string, errorDetails json.RawMessage) Envelope {
	return Envelope{
		MessageTypeId:    MsgTypeCallError,
		UniqueId:         uniqueId,
		ErrorCode:        errorCode,
		ErrorDescription: errorDescription,
		ErrorDetails:     errorDetails,
	}
}

// Ack is the empty-payload CALLRESULT used to acknowledge notifications.
func Ack(uniqueId string) Envelope {
	return CallResult(uniqueId, json.RawMessage("{}"))
}

func GenerateUniqueId() string {
	return uuid.New().String()
}

// Decode parses a text frame into an Envelope. Any violation of the envelope
// shape is reported as ErrMalformedEnvelope; the payload body is not schema
// checked here.
func Decode(buf []byte) (Envelope, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(buf, &elems); err != nil {
		return Envelope{}, fmt.Errorf("%w: invalid json: %s", ErrMalformedEnvelope, err.Error())
	}
	if len(elems) < 3 {
		return Envelope{}, fmt.Errorf("%w: array too short (%d elements)", ErrMalformedEnvelope, len(elems))
	}

	var msgTypeId int
	if err := json.Unmarshal(elems[0], &msgTypeId); err != nil {
		return Envelope{}, fmt.Errorf("%w: message-type-id is not an integer", ErrMalformedEnvelope)
	}

	env := Envelope{MessageTypeId: msgTypeId}
	var err error

	switch msgTypeId {
	case MsgTypeCall:
		if len(elems) != 4 {
			return Envelope{}, arityError("CALL", 4, len(elems))
		}
		if env.UniqueId, err = decodeString(elems[1], "uniqueId"); err != nil {
			return Envelope{}, err
		}
		if env.Action, err = decodeString(elems[2], "action"); err != nil {
			return Envelope{}, err
		}
		if env.Payload, err = decodeObject(elems[3], "payload"); err != nil {
			return Envelope{}, err
		}

	case MsgTypeCallResult:
		if len(elems) != 3 {
			return Envelope{}, arityError("CALLRESULT", 3, len(elems))
		}
		if env.UniqueId, err = decodeString(elems[1], "uniqueId"); err != nil {
			return Envelope{}, err
		}
		if env.Payload, err = decodeObject(elems[2], "payload"); err != nil {
			return Envelope{}, err
		}

	case MsgTypeCallError:
		if len(elems) != 4 && len(elems) != 5 {
			return Envelope{}, arityError("CALLERROR", 5, len(elems))
		}
		if env.UniqueId, err = decodeString(elems[1], "uniqueId"); err != nil {
			return Envelope{}, err
		}
		if env.ErrorCode, err = decodeString(elems[2], "errorCode"); err != nil {
			return Envelope{}, err
		}
		// errorDescription may legitimately be empty
		if jsonErr := json.Unmarshal(elems[3], &env.ErrorDescription); jsonErr != nil {
			return Envelope{}, fmt.Errorf("%w: errorDescription is not a string", ErrMalformedEnvelope)
		}
		if len(elems) == 5 {
			if env.ErrorDetails, err = decodeObject(elems[4], "errorDetails"); err != nil {
				return Envelope{}, err
			}
		}

	default:
		return Envelope{}, fmt.Errorf("%w: unknown message-type-id %d", ErrMalformedEnvelope, msgTypeId)
	}

	return env, nil
}

// Encode is the exact inverse of Decode. The message-type-id serialises as a
// JSON integer.
func (e Envelope) Encode() ([]byte, error) {
	switch e.MessageTypeId {
	case MsgTypeCall:
		return json.Marshal([]any{e.MessageTypeId, e.UniqueId, e.Action, payloadOrEmpty(e.Payload)})
	case MsgTypeCallResult:
		return json.Marshal([]any{e.MessageTypeId, e.UniqueId, payloadOrEmpty(e.Payload)})
	case MsgTypeCallError:
		if len(e.ErrorDetails) == 0 {
			return json.Marshal([]any{e.MessageTypeId, e.UniqueId, e.ErrorCode, e.ErrorDescription})
		}
		return json.Marshal([]any{e.MessageTypeId, e.UniqueId, e.ErrorCode, e.ErrorDescription, e.ErrorDetails})
	default:
		return nil, fmt.Errorf("%w: unknown message-type-id %d", ErrMalformedEnvelope, e.MessageTypeId)
	}
}

func decodeString(raw json.RawMessage, field string) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s is not a string", ErrMalformedEnvelope, field)
	}
	if s == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMalformedEnvelope, field)
	}
	return s, nil
}

func decodeObject(raw json.RawMessage, field string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: %s is not an object", ErrMalformedEnvelope, field)
	}
	return trimmed, nil
}

func payloadOrEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}

func arityError(kind string, want int, got int) error {
	return fmt.Errorf("%w: %s expects %d elements, got %d", ErrMalformedEnvelope, kind, want, got)
}
