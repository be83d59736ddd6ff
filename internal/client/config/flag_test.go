package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd", "-a", "http://api:9090", "-g", "", "-i", "10", "-t", "5", "-d", "data"}, expectPanic: false,
			expected: &Config{ServerURL: "http://api:9090", OnlineCheckInterval: 10 * time.Second, RequestTimeout: 5 * time.Second, DataDir: "data"}},
		{name: "Test2 unrelated flags ignored", args: []string{"cmd", "-x", "1", "-a", "http://api"}, expectPanic: false,
			expected: &Config{ServerURL: "http://api"}},
		{name: "Test3 incorrect check interval", args: []string{"cmd", "-a", "http://api", "-i", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
