package ocpp

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCall(t *testing.T) {
	frame := `[2,"1","BootNotification",{"chargePointVendor":"Test Vendor","chargePointModel":"Test Model"}]`

	env, err := Decode([]byte(frame))

	require.NoError(t, err)
	assert.Equal(t, MsgTypeCall, env.MessageTypeId)
	assert.Equal(t, "1", env.UniqueId)
	assert.Equal(t, "BootNotification", env.Action)

	var boot BootNotification
	require.NoError(t, json.Unmarshal(env.Payload, &boot))
	assert.Equal(t, "Test Vendor", boot.ChargePointVendor)
	assert.Equal(t, "Test Model", boot.ChargePointModel)
}

func TestDecodeCallResult(t *testing.T) {
	env, err := Decode([]byte(`[3,"a5663aa99f9645988a7a41b53c81a780",{"currentTime":"2023-01-13T09:58:14.920Z"}]`))

	require.NoError(t, err)
	assert.Equal(t, MsgTypeCallResult, env.MessageTypeId)
	assert.Equal(t, "a5663aa99f9645988a7a41b53c81a780", env.UniqueId)
	assert.Empty(t, env.Action)
}

func TestDecodeCallErrorWithoutDetails(t *testing.T) {
	env, err := Decode([]byte(`[4,"7","NotSupported","action not supported"]`))

	require.NoError(t, err)
	assert.Equal(t, MsgTypeCallError, env.MessageTypeId)
	assert.Equal(t, "NotSupported", env.ErrorCode)
	assert.Equal(t, "action not supported", env.ErrorDescription)
	assert.Nil(t, env.ErrorDetails)
}

func TestDecodeCallErrorWithDetails(t *testing.T) {
	env, err := Decode([]byte(`[4,"7","InternalError","boom",{"hint":"retry"}]`))

	require.NoError(t, err)
	assert.JSONEq(t, `{"hint":"retry"}`, string(env.ErrorDetails))
}

func TestDecodeMalformed(t *testing.T) {
	frames := map[string]string{
		"invalid json":        `[2,"1",`,
		"not an array":        `{"messageTypeId":2}`,
		"unknown type id":     `[9,"1",{}]`,
		"float type id":       `[2.5,"1","Heartbeat",{}]`,
		"string type id":      `["2","1","Heartbeat",{}]`,
		"call wrong arity":    `[2,"1","Heartbeat"]`,
		"result wrong arity":  `[3,"1","Heartbeat",{}]`,
		"error wrong arity":   `[4,"1","NotSupported"]`,
		"empty uniqueId":      `[2,"","Heartbeat",{}]`,
		"non-string uniqueId": `[2,7,"Heartbeat",{}]`,
		"non-object payload":  `[2,"1","Heartbeat",[1,2]]`,
		"empty array":         `[]`,
	}

	for name, frame := range frames {
		_, err := Decode([]byte(frame))
		assert.ErrorIs(t, err, ErrMalformedEnvelope, name)
	}
}

func TestEncodeIntegerMessageTypeId(t *testing.T) {
	out, err := Call("42", "Heartbeat", json.RawMessage("{}")).Encode()

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), `[2,`), "got: %s", out)
}

func TestRoundTrip(t *testing.T) {
	envelopes := []Envelope{
		Call("1", "BootNotification", json.RawMessage(`{"chargePointVendor":"v","chargePointModel":"m"}`)),
		CallResult("2", json.RawMessage(`{"status":"Accepted"}`)),
		CallError("3", ErrorCode_ProtocolError, "bad frame", nil),
		CallError("4", ErrorCode_InternalError, "boom", json.RawMessage(`{"hint":"retry"}`)),
		Ack("5"),
	}

	for _, env := range envelopes {
		encoded, err := env.Encode()
		require.NoError(t, err)

		decoded, err := Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, env, decoded)
	}
}

func TestAck(t *testing.T) {
	out, err := Ack("5").Encode()

	require.NoError(t, err)
	assert.Equal(t, `[3,"5",{}]`, string(out))
}

func TestGenerateUniqueId(t *testing.T) {
	result := GenerateUniqueId()

	_, err := uuid.Parse(result)
	assert.NoError(t, err)
}
