package helpers

import "time"

// nowFunc is the gateway's clock. Tests swap it to drive heartbeat grace
// windows and call timeouts deterministically.
var nowFunc = time.Now

func Now() time.Time {
	return nowFunc()
}

func SetMockNow(mock func() time.Time) {
	nowFunc = mock
}

func ResetMockNow() {
	nowFunc = time.Now
}
