package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultModules() map[OcppVersion]Module {
	return Modules([]string{Subprotocol16, Subprotocol201})
}

func TestNegotiatePrefersNewest(t *testing.T) {
	v, subprotocol, ok := Negotiate([]string{Subprotocol16, Subprotocol201}, defaultModules())

	require.True(t, ok)
	assert.Equal(t, V201, v)
	assert.Equal(t, Subprotocol201, subprotocol)
}

func TestNegotiateSingle(t *testing.T) {
	v, subprotocol, ok := Negotiate([]string{Subprotocol16}, defaultModules())

	require.True(t, ok)
	assert.Equal(t, V16, v)
	assert.Equal(t, Subprotocol16, subprotocol)
}

func TestNegotiateNoSubprotocolAssumesNewest(t *testing.T) {
	v, subprotocol, ok := Negotiate(nil, defaultModules())

	require.True(t, ok)
	assert.Equal(t, V201, v)
	assert.Empty(t, subprotocol)
}

func TestNegotiateUnsupported(t *testing.T) {
	_, _, ok := Negotiate([]string{"ocpp9.9"}, defaultModules())
	assert.False(t, ok)

	_, _, ok = Negotiate([]string{Subprotocol20}, defaultModules())
	assert.False(t, ok, "ocpp2.0 is not configured by default")
}

func TestIsSupported(t *testing.T) {
	modules := defaultModules()

	assert.True(t, IsSupported(V16, modules))
	assert.True(t, IsSupported(V201, modules))
	assert.False(t, IsSupported(V20, modules))
}

func TestSubprotocolMapping(t *testing.T) {
	assert.Equal(t, V16, ToVersion(Subprotocol16))
	assert.Equal(t, V201, ToVersion(Subprotocol201))
	assert.Equal(t, Subprotocol16, ToSubprotocol(V16))
	assert.Equal(t, Subprotocol201, ToSubprotocol(V201))
}

func TestValidateRequiredFields(t *testing.T) {
	m := defaultModules()[V16]

	err := m.Validate("BootNotification", json.RawMessage(`{"chargePointVendor":"v","chargePointModel":"m"}`), Direction_FromChargePoint)
	assert.NoError(t, err)

	err = m.Validate("BootNotification", json.RawMessage(`{"chargePointVendor":"v"}`), Direction_FromChargePoint)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "chargePointModel", vErr.Field)
}

func TestValidateUnknownActionPassesThrough(t *testing.T) {
	m := defaultModules()[V16]

	err := m.Validate("VendorSpecificThing", json.RawMessage(`{"whatever":true}`), Direction_FromChargePoint)
	assert.NoError(t, err)
}

func TestValidateDirectionTables(t *testing.T) {
	m := defaultModules()[V16]

	// RemoteStartTransaction is gateway->CP; from a CP it is unknown and opaque
	assert.NoError(t, m.Validate("RemoteStartTransaction", json.RawMessage(`{}`), Direction_FromChargePoint))
	assert.Error(t, m.Validate("RemoteStartTransaction", json.RawMessage(`{}`), Direction_ToChargePoint))
	assert.NoError(t, m.Validate("RemoteStartTransaction", json.RawMessage(`{"idTag":"FF88888801"}`), Direction_ToChargePoint))
}

func TestValidateV201(t *testing.T) {
	m := defaultModules()[V201]

	assert.Error(t, m.Validate("StatusNotification", json.RawMessage(`{"connectorId":1}`), Direction_FromChargePoint))
	assert.NoError(t, m.Validate("StatusNotification",
		json.RawMessage(`{"timestamp":"2024-01-01T00:00:00Z","connectorStatus":"Available","evseId":1,"connectorId":1}`),
		Direction_FromChargePoint))
}
