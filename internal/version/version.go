// OCPP version negotiation and per-version action validation.
// One module per supported protocol version; modules own the action
// whitelist and a minimal required-field check. Unknown actions pass
// through as opaque payloads so the gateway stays forward compatible.
package version

import (
	"encoding/json"
	"fmt"
)

type OcppVersion string

const (
	V16  OcppVersion = "1.6"
	V20  OcppVersion = "2.0"
	V201 OcppVersion = "2.0.1"
)

const (
	Subprotocol16  = "ocpp1.6"
	Subprotocol20  = "ocpp2.0"
	Subprotocol201 = "ocpp2.0.1"
)

type Direction int

const (
	Direction_FromChargePoint Direction = iota
	Direction_ToChargePoint
)

// Module validates an envelope's action/payload shape for one version.
type Module interface {
	Version() OcppVersion
	Validate(action string, payload json.RawMessage, direction Direction) error
}

type ValidationError struct {
	Action string
	Field  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Action, e.Field)
}

// Modules returns the statically configured module set, keyed by version.
func Modules(subprotocols []string) map[OcppVersion]Module {
	modules := make(map[OcppVersion]Module)
	for _, sp := range subprotocols {
		switch ToVersion(sp) {
		case V16:
			modules[V16] = &v16Module{}
		case V20, V201:
			// 2.0 shares the 2.0.1 action catalogue subset we shape-check
			modules[ToVersion(sp)] = &v201Module{version: ToVersion(sp)}
		}
	}
	return modules
}

func IsSupported(v OcppVersion, supported map[OcppVersion]Module) bool {
	_, ok := supported[v]
	return ok
}

// Negotiate picks the newest mutually supported version from the client's
// requested subprotocols. No subprotocol offered means the newest configured
// version is assumed.
func Negotiate(requested []string, supported map[OcppVersion]Module) (OcppVersion, string, bool) {
	priority := []string{Subprotocol201, Subprotocol20, Subprotocol16}

	if len(requested) == 0 {
		for _, sp := range priority {
			if IsSupported(ToVersion(sp), supported) {
				return ToVersion(sp), "", true
			}
		}
		return "", "", false
	}

	for _, preferred := range priority {
		for _, r := range requested {
			if r == preferred && IsSupported(ToVersion(preferred), supported) {
				return ToVersion(preferred), preferred, true
			}
		}
	}
	return "", "", false
}

func ToVersion(subprotocol string) OcppVersion {
	switch subprotocol {
	case Subprotocol16:
		return V16
	case Subprotocol20:
		return V20
	case Subprotocol201:
		return V201
	default:
		return OcppVersion(subprotocol)
	}
}

func ToSubprotocol(v OcppVersion) string {
	switch v {
	case V16:
		return Subprotocol16
	case V20:
		return Subprotocol20
	case V201:
		return Subprotocol201
	default:
		return string(v)
	}
}

// requireFields checks top-level presence only; deep schema validation is
// deliberately out of scope.
func requireFields(action string, payload json.RawMessage, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return &ValidationError{Action: action, Field: "(payload)"}
	}
	for _, f := range fields {
		if _, ok := probe[f]; !ok {
			return &ValidationError{Action: action, Field: f}
		}
	}
	return nil
}
