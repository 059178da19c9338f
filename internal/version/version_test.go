package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompatibleServer(t *testing.T) {
	tests := []struct {
		name   string
		server string
		min    string
		want   bool
	}{
		{"newer", "1.4.0", "1.0.0", true},
		{"equal with prefix", "v1.0.0", "1.0.0", true},
		{"older", "0.9.2", "1.0.0", false},
		{"no minimum", "0.1.0", "", true},
		{"unparseable server", "dev", "1.0.0", true},
		{"empty server", "", "1.0.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompatibleServer(tt.server, tt.min))
		})
	}
}

func TestString(t *testing.T) {
	oldVersion, oldCommit, oldBuild := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldVersion, oldCommit, oldBuild })

	Version, GitCommit, BuildTime = "0.4.0", "unknown", "unknown"
	assert.Equal(t, "0.4.0", String())
	assert.Equal(t, "Version=0.4.0", StringFull())

	GitCommit, BuildTime = "0123456789abcdef", "2025-10-28T09:30:00Z"
	assert.Equal(t, "0.4.0-01234567", String())
	assert.Equal(t, "Version=0.4.0 Commit=01234567 BuildTime=2025-10-28T09:30:00Z", StringFull())
}
