package ocpp

import "encoding/json"

// Actions the gateway interprets itself; everything else passes through as
// an opaque payload.
const (
	Action_BootNotification   = "BootNotification"
	Action_Heartbeat          = "Heartbeat"
	Action_StatusNotification = "StatusNotification"
	Action_GetConfiguration   = "GetConfiguration"
)

// Actions the gateway issues towards charge points.
const (
	Action_RemoteStartTransaction = "RemoteStartTransaction"
	Action_RemoteStopTransaction  = "RemoteStopTransaction"
	Action_Reset                  = "Reset"
	Action_UnlockConnector        = "UnlockConnector"
	Action_ChangeConfiguration    = "ChangeConfiguration"
	Action_ChangeAvailability     = "ChangeAvailability"
	Action_TriggerMessage         = "TriggerMessage"
	Action_GetDiagnostics         = "GetDiagnostics"
	Action_DataTransfer           = "DataTransfer"
)

type BootNotification struct {
	ChargePointVendor       string `json:"chargePointVendor,omitempty"`
	ChargePointModel        string `json:"chargePointModel,omitempty"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty"`
	MeterType               string `json:"meterType,omitempty"`
	MeterSerialNumber       string `json:"meterSerialNumber,omitempty"`
	Iccid                   string `json:"iccid,omitempty"`
}

type BootNotificationResponse struct {
	Status      string `json:"status"`
	CurrentTime string `json:"currentTime"`
	Interval    int    `json:"interval"`
}

const (
	BootStatus_Accepted = "Accepted"
	BootStatus_Pending  = "Pending"
	BootStatus_Rejected = "Rejected"
)

type HeartbeatResponse struct {
	CurrentTime string `json:"currentTime"`
}

type StatusNotification struct {
	ConnectorId int    `json:"connectorId"`
	ErrorCode   string `json:"errorCode,omitempty"`
	Status      string `json:"status,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`

	Info            string `json:"info,omitempty"`
	VendorId        string `json:"vendorId,omitempty"`
	VendorErrorCode string `json:"vendorErrorCode,omitempty"`
}

const (
	Status_Available     = "Available"
	Status_Preparing     = "Preparing"
	Status_Charging      = "Charging"
	Status_Finishing     = "Finishing"
	Status_SuspendedEvse = "SuspendedEVSE"
	Status_Unavailable   = "Unavailable"
	Status_Faulted       = "Faulted"
)

const (
	StatusError_NoError              = "NoError"
	StatusError_ConnectorLockFailure = "ConnectorLockFailure"
	StatusError_EVCommunicationError = "EVCommunicationError"
	StatusError_GroundFailure        = "GroundFailure"
	StatusError_HighTemperature      = "HighTemperature"
	StatusError_InternalError        = "InternalError"
	StatusError_OtherError           = "OtherError"
	StatusError_OverCurrentFailure   = "OverCurrentFailure"
	StatusError_PowerMeterFailure    = "PowerMeterFailure"
	StatusError_PowerSwitchFailure   = "PowerSwitchFailure"
	StatusError_ReaderFailure        = "ReaderFailure"
	StatusError_ResetFailure         = "ResetFailure"
	StatusError_UnderVoltage         = "UnderVoltage"
	StatusError_OverVoltage          = "OverVoltage"
	StatusError_WeakSignal           = "WeakSignal"
)

// --- Configuration ---

type GetConfiguration struct {
	Key []string `json:"key,omitempty"`
}

type GetConfigurationResponse struct {
	ConfigurationKey []KeyValue `json:"configurationKey,omitempty"`
	UnknownKey       []string   `json:"unknownKey,omitempty"`
}

type KeyValue struct {
	Key      string `json:"key"`
	Readonly bool   `json:"readonly"`
	Value    string `json:"value,omitempty"`
}

type RemoteStartTransaction struct {
	ConnectorId     int             `json:"connectorId,omitempty"`
	IdTag           string          `json:"idTag"`
	ChargingProfile json.RawMessage `json:"chargingProfile,omitempty"`
}

type RemoteStopTransaction struct {
	TransactionId int `json:"transactionId"`
}

type DataTransfer struct {
	VendorId  string `json:"vendorId"`
	MessageId string `json:"messageId,omitempty"`
	Data      string `json:"data,omitempty"`
}

func MarshalPayload(obj any) json.RawMessage {
	raw, _ := json.Marshal(obj)
	return raw
}
