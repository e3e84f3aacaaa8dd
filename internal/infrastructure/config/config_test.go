package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"multinic-bond/internal/domain/constants"
	"multinic-bond/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"CONFIG_FILE", "NODE_NAME", "LOG_LEVEL", "COMMAND_TIMEOUT",
	"SAMPLE_INTERVAL", "SAMPLER_BACKOFF_ENABLED", "SAMPLER_BACKOFF_MAX_INTERVAL", "SAMPLER_BACKOFF_MULTIPLIER",
	"BACKEND", "EXCLUDED_PREFIXES", "ENABLED_TOKENS",
	"JOURNAL_ENABLED", "JOURNAL_DIR", "JOURNAL_RETENTION",
	"HISTORY_ENABLED", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_MAX_LIFETIME", "HTTP_PORT",
}

// clearConfigEnv는 테스트 동안 관련 환경 변수를 비웁니다 (종료 시 자동 복원)
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func TestEnvironmentConfigLoader_Load(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(*testing.T, *Config)
	}{
		{
			name:    "기본값으로 로드",
			envVars: map[string]string{},
			wantErr: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Agent.LogLevel)
				assert.Equal(t, constants.DefaultCommandTimeout, cfg.Agent.CommandTimeout)
				assert.Equal(t, constants.DefaultSampleInterval, cfg.Sampler.Interval)
				assert.False(t, cfg.Sampler.BackoffEnabled)
				assert.Equal(t, "auto", cfg.Network.Backend)
				assert.Equal(t, constants.DefaultExcludedPrefixes, cfg.Network.ExcludedPrefixes)
				assert.Equal(t, constants.DefaultEnabledTokens, cfg.Network.EnabledTokens)
				assert.True(t, cfg.Journal.Enabled)
				assert.Equal(t, constants.DefaultJournalDir, cfg.Journal.Directory)
				assert.Equal(t, 50, cfg.Journal.Retention)
				assert.False(t, cfg.History.Enabled)
				assert.Equal(t, "8080", cfg.Server.Port)
			},
		},
		{
			name: "환경 변수로 재정의",
			envVars: map[string]string{
				"NODE_NAME":         "edge-01",
				"LOG_LEVEL":         "debug",
				"COMMAND_TIMEOUT":   "10s",
				"SAMPLE_INTERVAL":   "2s",
				"BACKEND":           "NETSH",
				"EXCLUDED_PREFIXES": "vEthernet, Hyper-V ,",
				"ENABLED_TOKENS":    "Enabled,已启用",
				"JOURNAL_DIR":       "/tmp/journal",
				"JOURNAL_RETENTION": "5",
				"HTTP_PORT":         "9090",
			},
			wantErr: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "edge-01", cfg.Agent.NodeName)
				assert.Equal(t, "debug", cfg.Agent.LogLevel)
				assert.Equal(t, 10*time.Second, cfg.Agent.CommandTimeout)
				assert.Equal(t, 2*time.Second, cfg.Sampler.Interval)
				assert.Equal(t, "netsh", cfg.Network.Backend)
				assert.Equal(t, []string{"vEthernet", "Hyper-V"}, cfg.Network.ExcludedPrefixes)
				assert.Equal(t, []string{"Enabled", "已启用"}, cfg.Network.EnabledTokens)
				assert.Equal(t, "/tmp/journal", cfg.Journal.Directory)
				assert.Equal(t, 5, cfg.Journal.Retention)
				assert.Equal(t, "9090", cfg.Server.Port)
			},
		},
		{
			name: "이력 활성화 시 DB 설정 사용",
			envVars: map[string]string{
				"HISTORY_ENABLED":   "true",
				"DB_HOST":           "db.local",
				"DB_PORT":           "3307",
				"DB_USER":           "bond",
				"DB_PASSWORD":       "secret",
				"DB_NAME":           "bonding",
				"DB_MAX_OPEN_CONNS": "4",
				"DB_MAX_LIFETIME":   "1m",
			},
			wantErr: false,
			validate: func(t *testing.T, cfg *Config) {
				db := cfg.History.Database
				assert.True(t, cfg.History.Enabled)
				assert.Equal(t, "db.local", db.Host)
				assert.Equal(t, 4, db.MaxOpenConns)
				assert.Equal(t, 5, db.MaxIdleConns)
				assert.Equal(t, time.Minute, db.MaxLifetime)
				assert.Equal(t, "bond:secret@tcp(db.local:3307)/bonding?parseTime=true&charset=utf8mb4", db.DSN())
			},
		},
		{
			name: "잘못된 숫자/기간 값은 기본값 유지",
			envVars: map[string]string{
				"COMMAND_TIMEOUT":   "soon",
				"JOURNAL_RETENTION": "many",
				"HISTORY_ENABLED":   "maybe",
			},
			wantErr: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, constants.DefaultCommandTimeout, cfg.Agent.CommandTimeout)
				assert.Equal(t, 50, cfg.Journal.Retention)
				assert.False(t, cfg.History.Enabled)
			},
		},
		{
			name: "백오프 설정",
			envVars: map[string]string{
				"SAMPLER_BACKOFF_ENABLED":      "true",
				"SAMPLER_BACKOFF_MAX_INTERVAL": "1m",
				"SAMPLER_BACKOFF_MULTIPLIER":   "1.5",
			},
			wantErr: false,
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Sampler.BackoffEnabled)
				assert.Equal(t, time.Minute, cfg.Sampler.BackoffMaxInterval)
				assert.InDelta(t, 1.5, cfg.Sampler.BackoffMultiplier, 0.0001)
			},
		},
		{
			name:    "알 수 없는 백엔드",
			envVars: map[string]string{"BACKEND": "nmcli"},
			wantErr: true,
		},
		{
			name:    "0 이하의 명령 타임아웃",
			envVars: map[string]string{"COMMAND_TIMEOUT": "0s"},
			wantErr: true,
		},
		{
			name: "백오프 배수가 1 이하",
			envVars: map[string]string{
				"SAMPLER_BACKOFF_ENABLED":    "true",
				"SAMPLER_BACKOFF_MULTIPLIER": "1",
			},
			wantErr: true,
		},
		{
			name: "백오프 최대 간격이 샘플 간격보다 짧음",
			envVars: map[string]string{
				"SAMPLER_BACKOFF_ENABLED":      "true",
				"SAMPLE_INTERVAL":              "10s",
				"SAMPLER_BACKOFF_MAX_INTERVAL": "5s",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			loader := NewEnvironmentConfigLoader()
			cfg, err := loader.Load()

			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestEnvironmentConfigLoader_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "기본 설정은 유효",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "이력 비활성화 시 DB 필드 불필요",
			mutate:  func(c *Config) { c.History.Database = DatabaseConfig{} },
			wantErr: false,
		},
		{
			name: "이력 활성화 시 DB 호스트 필요",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.Database.Host = ""
			},
			wantErr: true,
		},
		{
			name: "이력 활성화 시 DB 이름 필요",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.Database.Database = ""
			},
			wantErr: true,
		},
		{
			name:    "토큰 목록이 비어 있음",
			mutate:  func(c *Config) { c.Network.EnabledTokens = nil },
			wantErr: true,
		},
		{
			name:    "저널 디렉토리 누락",
			mutate:  func(c *Config) { c.Journal.Directory = "" },
			wantErr: true,
		},
		{
			name: "저널 비활성화 시 디렉토리 불필요",
			mutate: func(c *Config) {
				c.Journal.Enabled = false
				c.Journal.Directory = ""
			},
			wantErr: false,
		},
		{
			name:    "HTTP 포트 누락",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: true,
		},
	}

	loader := &EnvironmentConfigLoader{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := loader.validate(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvironmentConfigLoader_ConfigFile(t *testing.T) {
	clearConfigEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "bond.yaml")
	content := `
agent:
  log_level: warn
  command_timeout: 3s
sampler:
  interval: 500ms
network:
  backend: iproute
  excluded_prefixes: [lo, docker]
journal:
  retention: 7
server:
  port: "7070"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CONFIG_FILE", path)

	t.Run("파일 값이 기본값을 덮어씀", func(t *testing.T) {
		cfg, err := NewEnvironmentConfigLoader().Load()
		require.NoError(t, err)

		assert.Equal(t, "warn", cfg.Agent.LogLevel)
		assert.Equal(t, 3*time.Second, cfg.Agent.CommandTimeout)
		assert.Equal(t, 500*time.Millisecond, cfg.Sampler.Interval)
		assert.Equal(t, "iproute", cfg.Network.Backend)
		assert.Equal(t, []string{"lo", "docker"}, cfg.Network.ExcludedPrefixes)
		assert.Equal(t, 7, cfg.Journal.Retention)
		assert.Equal(t, "7070", cfg.Server.Port)
		// 파일에 없는 값은 기본값 유지
		assert.Equal(t, constants.DefaultEnabledTokens, cfg.Network.EnabledTokens)
	})

	t.Run("환경 변수가 파일 값을 덮어씀", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "error")
		t.Setenv("HTTP_PORT", "6060")

		cfg, err := NewEnvironmentConfigLoader().Load()
		require.NoError(t, err)

		assert.Equal(t, "error", cfg.Agent.LogLevel)
		assert.Equal(t, "6060", cfg.Server.Port)
		assert.Equal(t, 3*time.Second, cfg.Agent.CommandTimeout)
	})

	t.Run("파일을 읽을 수 없음", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.yaml"))

		cfg, err := NewEnvironmentConfigLoader().Load()
		assert.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
		assert.Nil(t, cfg)
	})

	t.Run("잘못된 YAML", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("agent: [unclosed"), 0644))
		t.Setenv("CONFIG_FILE", bad)

		cfg, err := NewEnvironmentConfigLoader().Load()
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}
