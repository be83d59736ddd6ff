package flagx

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	configFlags := []string{"-c", "-config"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{"separate value", []string{"-c", "server.json", "-a", ":8080"}, configFlags, []string{"-c", "server.json"}},
		{"equals form", []string{"-config=client.json", "-s", "http://localhost:8080"}, configFlags, []string{"-config=client.json"}},
		{"equals value may start with dash", []string{"-config=-odd.json"}, configFlags, []string{"-config=-odd.json"}},
		{"trailing flag without value", []string{"-d", "postgres://x", "-c"}, configFlags, []string{"-c"}},
		{"next flag is not a value", []string{"-c", "-dev"}, configFlags, []string{"-c"}},
		{"order and repeats preserved", []string{"-c", "a.json", "-g", ":9090", "-c", "b.json"}, []string{"-c", "-g"},
			[]string{"-c", "a.json", "-g", ":9090", "-c", "b.json"}},
		{"nothing allowed matches", []string{"-jwt-key", "secret", "positional"}, configFlags, []string{}},
		{"nil args", nil, configFlags, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("FilterArgs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short -c with value", func(t *testing.T) {
		os.Args = []string{"healthrecords-server", "-c", "/etc/healthrecords/server.json"}
		assert.Equal(t, "/etc/healthrecords/server.json", ConfigFileFlag())
	})

	t.Run("long -config with value", func(t *testing.T) {
		os.Args = []string{"healthrecords-server", "-config", "/etc/healthrecords/client.json"}
		assert.Equal(t, "/etc/healthrecords/client.json", ConfigFileFlag())
	})

	t.Run("unknown flags are ignored", func(t *testing.T) {
		os.Args = []string{"healthrecords-server", "-x", "1", "-y", "2"}
		assert.Empty(t, ConfigFileFlag())
	})

	t.Run("multiple flags, last wins", func(t *testing.T) {
		os.Args = []string{"healthrecords-server", "-c", "/path/1.json", "-config", "/path/2.json"}
		assert.Equal(t, "/path/2.json", ConfigFileFlag())
	})
}

func TestLookupEnv(t *testing.T) {
	t.Setenv("HR_TEST_PRIMARY", "")
	t.Setenv("HR_TEST_FALLBACK", "value")

	v, ok := LookupEnv("HR_TEST_MISSING", "HR_TEST_PRIMARY", "HR_TEST_FALLBACK")
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = LookupEnv("HR_TEST_MISSING")
	assert.False(t, ok)
}
