package s3backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/env"
)

func withEnv(t *testing.T, values map[string]string) {
	t.Helper()
	prev := env.Env
	env.Env = values
	t.Cleanup(func() { env.Env = prev })
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		wantErr string
	}{
		{"disabled needs nothing", map[string]string{}, ""},
		{"enabled without key", map[string]string{"LEDGER_ARCHIVE_ENABLED": "true"}, "S3_ACCESS_KEY_ID"},
		{"enabled without secret", map[string]string{"LEDGER_ARCHIVE_ENABLED": "true", "S3_ACCESS_KEY_ID": "k"}, "S3_SECRET_ACCESS_KEY"},
		{"enabled without bucket", map[string]string{"LEDGER_ARCHIVE_ENABLED": "true", "S3_ACCESS_KEY_ID": "k", "S3_SECRET_ACCESS_KEY": "s"}, "S3_BUCKET_NAME"},
		{"enabled and complete", map[string]string{"LEDGER_ARCHIVE_ENABLED": "true", "S3_ACCESS_KEY_ID": "k", "S3_SECRET_ACCESS_KEY": "s", "S3_BUCKET_NAME": "ledger"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, tt.values)
			cfg, err := LoadConfig()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultArchiveInterval, cfg.Interval)
			assert.Equal(t, DefaultKeyPrefix, cfg.KeyPrefix)
		})
	}
}

func TestLoadConfig_Interval(t *testing.T) {
	withEnv(t, map[string]string{"LEDGER_ARCHIVE_INTERVAL": "6h", "LEDGER_ARCHIVE_PREFIX": "backups"})

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, cfg.Interval)
	assert.Equal(t, "backups", cfg.KeyPrefix)
	assert.False(t, cfg.IsEnabled())
}

func TestSnapshotKey(t *testing.T) {
	at := time.Date(2025, 4, 5, 3, 0, 0, 0, time.UTC)
	cfg := &Config{}

	assert.Equal(t, "ledger/2025/04/05/licenses-1743822000-Ab12Cd.json", cfg.SnapshotKey(at, "Ab12Cd"))
	assert.Equal(t, "ledger/2025/04/05/licenses-1743822000.json", cfg.SnapshotKey(at, ""))

	cfg.KeyPrefix = "archive"
	assert.Equal(t, "archive/2025/04/05/licenses-1743822000-x.json", cfg.SnapshotKey(at, "x"))
}
