package version

import "encoding/json"

type v16Module struct{}

// Known OCPP 1.6 actions per direction, with the required top-level fields
// the gateway shape-checks before routing.
var v16FromCp = map[string][]string{
	"Authorize":                     {"idTag"},
	"BootNotification":              {"chargePointVendor", "chargePointModel"},
	"DataTransfer":                  {"vendorId"},
	"DiagnosticsStatusNotification": {"status"},
	"FirmwareStatusNotification":    {"status"},
	"Heartbeat":                     nil,
	"MeterValues":                   {"connectorId", "meterValue"},
	"StartTransaction":              {"connectorId", "idTag", "meterStart", "timestamp"},
	"StatusNotification":            {"connectorId", "errorCode", "status"},
	"StopTransaction":               {"meterStop", "timestamp", "transactionId"},
}

var v16ToCp = map[string][]string{
	"CancelReservation":      {"reservationId"},
	"ChangeAvailability":     {"connectorId", "type"},
	"ChangeConfiguration":    {"key", "value"},
	"ClearCache":             nil,
	"ClearChargingProfile":   nil,
	"DataTransfer":           {"vendorId"},
	"GetConfiguration":       nil,
	"GetDiagnostics":         {"location"},
	"GetLocalListVersion":    nil,
	"RemoteStartTransaction": {"idTag"},
	"RemoteStopTransaction":  {"transactionId"},
	"ReserveNow":             {"connectorId", "expiryDate", "idTag", "reservationId"},
	"Reset":                  {"type"},
	"SendLocalList":          {"listVersion", "updateType"},
	"SetChargingProfile":     {"connectorId", "csChargingProfiles"},
	"TriggerMessage":         {"requestedMessage"},
	"UnlockConnector":        {"connectorId"},
	"UpdateFirmware":         {"location", "retrieveDate"},
}

func (m *v16Module) Version() OcppVersion {
	return V16
}

func (m *v16Module) Validate(action string, payload json.RawMessage, direction Direction) error {
	table := v16FromCp
	if direction == Direction_ToChargePoint {
		table = v16ToCp
	}

	fields, known := table[action]
	if !known {
		return nil // opaque pass-through
	}
	return requireFields(action, payload, fields)
}
