// Provides OCPP-flavoured ISO-8601 timestamp helpers
package helpers

const (
	iso8601       = "2006-01-02T15:04:05Z"
	iso8601Millis = "2006-01-02T15:04:05.000Z"
)

func GenerateDateNow() string {
	return Now().UTC().Format(iso8601)
}

func GenerateDateNowMs() string {
	return Now().UTC().Format(iso8601Millis)
}
