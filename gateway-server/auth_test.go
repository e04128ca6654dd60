package main

import (
	"net/http/httptest"
	"testing"

	conf "ev/ocpp/gateway/internal/config"
	"ev/ocpp/gateway/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	_log = logging.LoggingSetup(false, "gateway-server-test")
	m.Run()
}

func TestChargePointPathParsing(t *testing.T) {
	identity, err := toChargePointIdentity("/ocpp/CP001")
	require.NoError(t, err)
	assert.Equal(t, "CP001", identity)

	identity, err = toChargePointIdentity("/ocpp/CP001/")
	require.NoError(t, err)
	assert.Equal(t, "CP001", identity)
}

func TestChargePointPathRejected(t *testing.T) {
	cases := []string{
		"/ocpp/",
		"/ocpp/CP001/extra",
		"/other/CP001",
		"/ocpp/CP 001",
		"/ocpp/CP001;DROP",
	}
	for _, path := range cases {
		_, err := toChargePointIdentity(path)
		assert.Error(t, err, "path %s should be rejected", path)
	}
}

func TestChargePointIdentityTruncated(t *testing.T) {
	long := "/ocpp/AAAAAAAAAABBBBBBBBBBCCCCCCCCCCDDDDDDDDDD"

	identity, err := toChargePointIdentity(long)
	require.NoError(t, err)
	assert.Len(t, identity, IdentityMaxLen)
	assert.Equal(t, "AAAAAAAAAABBBBBBBBBBCCCCCCCCCCDD", identity)
}

func TestSubscriberPathParsing(t *testing.T) {
	identity, connectorId, err := toSubscriberTarget("/user-cp/CP001/2")
	require.NoError(t, err)
	assert.Equal(t, "CP001", identity)
	assert.Equal(t, 2, connectorId)
}

func TestSubscriberPathRejected(t *testing.T) {
	cases := []string{
		"/user-cp/CP001",
		"/user-cp/CP001/0",
		"/user-cp/CP001/-1",
		"/user-cp/CP001/two",
		"/user-cp/CP001/1/extra",
		"/user-cp//1",
	}
	for _, path := range cases {
		_, _, err := toSubscriberTarget(path)
		assert.Error(t, err, "path %s should be rejected", path)
	}
}

func TestAuthDisabledAccepts(t *testing.T) {
	serviceState := &ServiceState{Config: &conf.Configuration{}}
	serviceState.Config.Services.WsGateway.EnableAuth = false

	req := httptest.NewRequest("GET", "/ocpp/CP001", nil)
	result := AuthConnection(req, "CP001", serviceState)

	assert.True(t, result.IsAuthenticated)
	assert.Equal(t, "CP001", result.Identity)
}

func TestAuthEnabledWithoutCacheRejects(t *testing.T) {
	serviceState := &ServiceState{Config: &conf.Configuration{}}
	serviceState.Config.Services.WsGateway.EnableAuth = true

	req := httptest.NewRequest("GET", "/ocpp/CP001", nil)
	result := AuthConnection(req, "CP001", serviceState)

	assert.False(t, result.IsAuthenticated)
	assert.NotEmpty(t, result.Error)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/ocpp/CP001", nil)
	assert.Equal(t, "", bearerToken(req))

	req.Header.Set("Authorization", "Bearer s3cret")
	assert.Equal(t, "s3cret", bearerToken(req))

	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, "", bearerToken(req))
}
