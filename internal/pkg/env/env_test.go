package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withEnv(t *testing.T, values map[string]string) {
	t.Helper()
	prev := Env
	Env = values
	t.Cleanup(func() { Env = prev })
}

func TestGetEnv(t *testing.T) {
	withEnv(t, map[string]string{"NEXIUS_TEST_KEY": "from-file"})

	assert.Equal(t, "from-file", GetEnv("NEXIUS_TEST_KEY", "def"))
	assert.Equal(t, "def", GetEnv("NEXIUS_TEST_MISSING", "def"))

	t.Setenv("NEXIUS_TEST_OS", "from-os")
	assert.Equal(t, "from-os", GetEnv("NEXIUS_TEST_OS", "def"))
}

func TestGetEnvInt(t *testing.T) {
	withEnv(t, map[string]string{"A": "12", "B": "abc", "C": " "})

	assert.Equal(t, 12, GetEnvInt("A", 1))
	assert.Equal(t, 1, GetEnvInt("B", 1))
	assert.Equal(t, 7, GetEnvInt("C", 7))
	assert.Equal(t, 3, GetEnvInt("NOPE", 3))
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		raw  string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"false", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			withEnv(t, map[string]string{"FLAG": tt.raw})
			assert.Equal(t, tt.want, GetEnvBool("FLAG", tt.def))
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	withEnv(t, map[string]string{"D1": "8s", "D2": "90", "D3": "soon"})

	assert.Equal(t, 8*time.Second, GetEnvDuration("D1", time.Second))
	assert.Equal(t, 90*time.Second, GetEnvDuration("D2", time.Second))
	assert.Equal(t, time.Minute, GetEnvDuration("D3", time.Minute))
}
