package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateDateNowSecondPrecision(t *testing.T) {
	frozen := time.Date(2025, 3, 14, 15, 9, 26, 535000000, time.UTC)
	SetMockNow(func() time.Time { return frozen })
	defer ResetMockNow()

	assert.Equal(t, "2025-03-14T15:09:26Z", GenerateDateNow())
}

func TestGenerateDateNowMsKeepsMillis(t *testing.T) {
	frozen := time.Date(2025, 3, 14, 15, 9, 26, 535000000, time.UTC)
	SetMockNow(func() time.Time { return frozen })
	defer ResetMockNow()

	assert.Equal(t, "2025-03-14T15:09:26.535Z", GenerateDateNowMs())
}

func TestGenerateDateNowIsUtc(t *testing.T) {
	// non-UTC clock must still render as Z time
	offset := time.FixedZone("UTC+2", 2*60*60)
	frozen := time.Date(2025, 3, 14, 17, 9, 26, 0, offset)
	SetMockNow(func() time.Time { return frozen })
	defer ResetMockNow()

	assert.Equal(t, "2025-03-14T15:09:26Z", GenerateDateNow())
}
