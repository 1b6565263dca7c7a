package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "data/recruitment.db", cfg.Database.Path)
	assert.Equal(t, "json", cfg.Logger.Format)

	eng := cfg.Recruitment.Engine()
	assert.InDelta(t, 1.0, eng.ShortlistWeights.Academic+eng.ShortlistWeights.Experience+eng.ShortlistWeights.Other, 1e-9)
	assert.Equal(t, 3, eng.Rules.MinCommitteeMembers)
	assert.Equal(t, 2, eng.Rules.MinVerifiedReferences)
	assert.Contains(t, eng.RequiredDocuments, "signed_contract")
	assert.Equal(t, "OF", cfg.Recruitment.SequencePrefixes["offer"])

	policy := cfg.Screening.Policy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Greater(t, policy.Timeout, cfg.Screening.Latency)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/cases.db
recruitment:
  shortlist_weights:
    academic: 0.4
    experience: 0.4
    other: 0.2
  min_verified_references: 3
  required_documents: [signed_contract, tax_form]
  store_timeout: 2s
  sequence_prefixes:
    case: CASE
screening:
  timeout: 1s
  latency: 10ms
  watchlist:
    - Ivan Petrovich Sidorov
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	conn := cfg.Database.Connection()
	assert.Equal(t, "/tmp/cases.db", conn.Path)
	assert.Equal(t, 5*time.Second, conn.BusyTimeout)
	eng := cfg.Recruitment.Engine()
	assert.Equal(t, 0.4, eng.ShortlistWeights.Academic)
	assert.Equal(t, 3, eng.Rules.MinVerifiedReferences)
	assert.Equal(t, []string{"signed_contract", "tax_form"}, eng.RequiredDocuments)
	assert.Equal(t, 2*time.Second, eng.StoreTimeout)
	assert.Equal(t, "CASE", cfg.Recruitment.SequencePrefixes["case"])
	assert.Equal(t, "CT", cfg.Recruitment.SequencePrefixes["contract"], "unset prefixes keep their default")
	assert.Equal(t, []string{"Ivan Petrovich Sidorov"}, cfg.Screening.Watchlist)
	assert.Equal(t, 10*time.Millisecond, cfg.Screening.Latency)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("RECRUIT_SERVER_PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RECRUIT_SCREENING_MAX_ATTEMPTS", "5")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logger.Options().Level)
	assert.Equal(t, 5, cfg.Screening.MaxAttempts)
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	const key = "RECRUIT_DATABASE_PATH"
	if _, set := os.LookupEnv(key); set {
		t.Skipf("%s is set in the environment", key)
	}
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := writeConfig(t, "logger:\n  format: console\n")
	env := filepath.Join(filepath.Dir(path), ".env")
	require.NoError(t, os.WriteFile(env, []byte(key+"=/var/lib/recruitment.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/recruitment.db", cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "weights must sum to one",
			yaml: "recruitment:\n  shortlist_weights:\n    academic: 0.5\n    experience: 0.5\n    other: 0.5\n",
			want: "recruitment",
		},
		{
			name: "blend must sum to one",
			yaml: "recruitment:\n  prior_weight: 0.7\n  interview_weight: 0.7\n",
			want: "recruitment",
		},
		{
			name: "committee needs members",
			yaml: "recruitment:\n  min_committee_members: 0\n",
			want: "recruitment",
		},
		{
			name: "prefix cannot be blank",
			yaml: "recruitment:\n  sequence_prefixes:\n    offer: \" \"\n",
			want: "sequence_prefixes.offer",
		},
		{
			name: "latency within timeout",
			yaml: "screening:\n  timeout: 100ms\n  latency: 1s\n",
			want: "screening",
		},
		{
			name: "at least one attempt",
			yaml: "screening:\n  max_attempts: 0\n",
			want: "max_attempts",
		},
		{
			name: "log format",
			yaml: "logger:\n  format: xml\n",
			want: "logger.format",
		},
		{
			name: "port range",
			yaml: "server:\n  port: 70000\n",
			want: "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}
