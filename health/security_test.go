package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "flash path",
			input:    "failed to open /data/provision.json",
			expected: "failed to open [PATH]",
		},
		{
			name:     "windows path from a dev host",
			input:    "cannot read C:\\Users\\Admin\\provision.json",
			expected: "cannot read [PATH]",
		},
		{
			name:     "http url",
			input:    "provisioning fetch failed from https://api.example.com/v1/device",
			expected: "provisioning fetch failed from [URL]",
		},
		{
			name:     "server link url",
			input:    "cannot connect to ws://device.local:4317/ws",
			expected: "cannot connect to [URL]",
		},
		{
			name:     "ip address",
			input:    "timeout connecting to 192.168.1.100",
			expected: "timeout connecting to [IP]",
		},
		{
			name:     "bare port",
			input:    "failed to bind to :8080",
			expected: "failed to bind to [PORT]",
		},
		{
			name:     "device token",
			input:    "auth failed with token=abc123def",
			expected: "auth failed with [REDACTED]",
		},
		{
			name:     "dial error with several sensitive pieces",
			input:    "failed to connect to https://192.168.1.1:8080/api with token=abc123def",
			expected: "failed to connect to [URL] with [REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeErrorMessage(tt.input))
		})
	}
}

func TestWithSubStatus_SliceIsolation(t *testing.T) {
	device := Status{
		Component: "device",
		Status:    "healthy",
		SubStatuses: []Status{
			{Component: "transport", Status: "healthy"},
		},
	}

	grown := device.WithSubStatus(Status{
		Component: "audio",
		Status:    "unhealthy",
	})

	assert.Len(t, device.SubStatuses, 1, "receiver keeps its original sub-statuses")
	assert.Len(t, grown.SubStatuses, 2)

	assert.Equal(t, "transport", device.SubStatuses[0].Component)
	assert.Equal(t, "transport", grown.SubStatuses[0].Component)
	assert.Equal(t, "audio", grown.SubStatuses[1].Component)

	// Writes through the receiver must not reach the copy
	device.SubStatuses[0].Status = "degraded"

	assert.Equal(t, "degraded", device.SubStatuses[0].Status)
	assert.Equal(t, "healthy", grown.SubStatuses[0].Status,
		"copy shares no backing array with the receiver")
}
