package version

import "encoding/json"

type v201Module struct {
	version OcppVersion
}

var v201FromCp = map[string][]string{
	"Authorize":                 {"idToken"},
	"BootNotification":          {"chargingStation", "reason"},
	"DataTransfer":              {"vendorId"},
	"FirmwareStatusNotification": {"status"},
	"Heartbeat":                 nil,
	"LogStatusNotification":     {"status"},
	"MeterValues":               {"evseId", "meterValue"},
	"NotifyReport":              {"requestId", "generatedAt", "seqNo"},
	"SecurityEventNotification": {"type", "timestamp"},
	"StatusNotification":        {"timestamp", "connectorStatus", "evseId", "connectorId"},
	"TransactionEvent":          {"eventType", "timestamp", "triggerReason", "seqNo", "transactionInfo"},
}

var v201ToCp = map[string][]string{
	"CancelReservation":       {"reservationId"},
	"ChangeAvailability":      {"operationalStatus"},
	"DataTransfer":            {"vendorId"},
	"GetBaseReport":           {"requestId", "reportBase"},
	"GetLog":                  {"log", "logType", "requestId"},
	"GetVariables":            {"getVariableData"},
	"RequestStartTransaction": {"idToken", "remoteStartId"},
	"RequestStopTransaction":  {"transactionId"},
	"ReserveNow":              {"reservation"},
	"Reset":                   {"type"},
	"SetVariables":            {"setVariableData"},
	"TriggerMessage":          {"requestedMessage"},
	"UnlockConnector":         {"evseId", "connectorId"},
	"UpdateFirmware":          {"requestId", "firmware"},
}

func (m *v201Module) Version() OcppVersion {
	return m.version
}

func (m *v201Module) Validate(action string, payload json.RawMessage, direction Direction) error {
	table := v201FromCp
	if direction == Direction_ToChargePoint {
		table = v201ToCp
	}

	fields, known := table[action]
	if !known {
		return nil
	}
	return requireFields(action, payload, fields)
}
