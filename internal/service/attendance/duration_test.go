package attendance

import (
	"testing"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  int64
		expected string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{4530, "01:15:30"},
		{30600, "08:30:00"},
		{90061, "25:01:01"},
		{-10, "00:00:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDuration(tt.seconds))
	}
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "8.50", FormatHours(30600))
	assert.Equal(t, "1.26", FormatHours(4530))
	assert.Equal(t, "0.00", FormatHours(-1))
}

func TestAggregate_OpenSessionBeforeNowIsZero(t *testing.T) {
	sessions := []attendance.Session{
		{RecordID: "r1", Start: *at(12, 0, 0), Open: true},
	}

	assert.Equal(t, int64(0), Aggregate(sessions, *at(11, 0, 0)))
	assert.Equal(t, int64(60), Aggregate(sessions, *at(12, 1, 0)))
}

func TestAggregate_SkipsStaleSessions(t *testing.T) {
	start := *at(8, 0, 0)
	sessions := []attendance.Session{
		{RecordID: "r1", Start: start, End: &start, Stale: true},
		{RecordID: "r2", Start: *at(9, 0, 0), End: at(10, 0, 0)},
	}

	assert.Equal(t, int64(3600), Aggregate(sessions, *at(18, 0, 0)))
}
