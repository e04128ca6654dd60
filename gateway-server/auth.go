// Admission gate for charge-point connections: identity is derived from the
// request path and checked against a bearer token, a TLS client certificate,
// or an auth record in the redis cache.
package main

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"ev/ocpp/gateway/internal/telemetry"

	"github.com/go-redis/redis"
)

const (
	PrefixCpAuth      = "CP_"
	IdentityMaxLen    = 32
	chargePointPrefix = "/ocpp/"
	subscriberPrefix  = "/user-cp/"
)

type AuthResult struct {
	IsAuthenticated bool
	Identity        string
	Error           string
}

// AuthConnection evaluates the gate before the WebSocket upgrade completes.
func AuthConnection(req *http.Request, identity string, serviceState *ServiceState) AuthResult {
	if !serviceState.Config.Services.WsGateway.EnableAuth {
		_log.Debug("identity OK, auth is disabled...")
		return AuthResult{IsAuthenticated: true, Identity: identity}
	}

	if cn, ok := clientCertificateCN(req); ok {
		if cn == identity {
			_log.Debug("identity OK via client certificate")
			telemetry.TrackAuthenticationEvent(identity, req.RemoteAddr, "200")
			return AuthResult{IsAuthenticated: true, Identity: identity}
		}
		_log.Warnf("certificate CN %q does not match identity %q", cn, identity)
		telemetry.TrackAuthenticationEvent(identity, req.RemoteAddr, "403")
		return AuthResult{Error: "certificate subject mismatch"}
	}

	token := bearerToken(req)
	if !authIdentity(identity, token, serviceState) {
		_log.Warn("identity auth failed: ", identity)
		telemetry.TrackAuthenticationEvent(identity, req.RemoteAddr, "401")
		return AuthResult{Error: "unknown or unauthorized charge point"}
	}

	_log.Debug("identity OK")
	telemetry.TrackAuthenticationEvent(identity, req.RemoteAddr, "200")
	return AuthResult{IsAuthenticated: true, Identity: identity}
}

// clientCertificateCN extracts the subject CN when the client presented a
// TLS certificate; revocation checking stays with the TLS listener policy.
func clientCertificateCN(req *http.Request) (string, bool) {
	if req.TLS == nil || len(req.TLS.PeerCertificates) == 0 {
		return "", false
	}
	return req.TLS.PeerCertificates[0].Subject.CommonName, true
}

func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return header[len(prefix):]
	}
	return ""
}

// authIdentity checks the auth record stored for the charge point. A record
// with a stored token requires a matching bearer token; an empty record just
// requires the charge point to be known.
func authIdentity(identity string, token string, serviceState *ServiceState) bool {
	cache := serviceState.Cache
	if cache == nil {
		_log.Error("auth enabled but no auth cache connected")
		return false
	}

	response := cache.Get(PrefixCpAuth + identity)
	if response.Err() == redis.Nil {
		_log.Error("Not found: ", PrefixCpAuth+identity)
		return false
	}
	if response.Err() != nil {
		_log.Error("Cache error: ", response.Err())
		return false
	}

	stored := response.Val()
	if stored != "" && stored != token {
		_log.Warn("token mismatch for: ", identity)
		return false
	}
	return true
}

// toChargePointIdentity parses /ocpp/{identity}.
func toChargePointIdentity(urlPath string) (string, error) {
	if !strings.HasPrefix(urlPath, chargePointPrefix) {
		return "", errors.New("not a charge point path")
	}
	identity := strings.Trim(urlPath[len(chargePointPrefix):], "/")
	if identity == "" || strings.Contains(identity, "/") {
		return "", errors.New("no identity in path")
	}

	identity = truncateText(strings.TrimSpace(identity), IdentityMaxLen)
	if !validIdentityString(identity) {
		return "", errors.New("invalid characters in identity")
	}
	return identity, nil
}

// toSubscriberTarget parses /user-cp/{identity}/{connectorId}.
func toSubscriberTarget(urlPath string) (string, int, error) {
	if !strings.HasPrefix(urlPath, subscriberPrefix) {
		return "", 0, errors.New("not a subscriber path")
	}
	parts := strings.Split(strings.Trim(urlPath[len(subscriberPrefix):], "/"), "/")
	if len(parts) != 2 {
		return "", 0, errors.New("subscriber path needs identity and connector")
	}

	identity := truncateText(strings.TrimSpace(parts[0]), IdentityMaxLen)
	if !validIdentityString(identity) {
		return "", 0, errors.New("invalid characters in identity")
	}

	connectorId, err := strconv.Atoi(parts[1])
	if err != nil || connectorId < 1 {
		return "", 0, errors.New("invalid connector id")
	}
	return identity, connectorId, nil
}

func validIdentityString(identity string) bool {
	isValid := regexp.MustCompile(`^[A-Za-z0-9\-]+$`).MatchString
	return isValid(identity)
}

func truncateText(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
