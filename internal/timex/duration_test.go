package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1500ms"`), &d))
	assert.Equal(t, 1500*time.Millisecond, d.Duration)

	require.NoError(t, json.Unmarshal([]byte(`2000000000`), &d))
	assert.Equal(t, 2*time.Second, d.Duration)

	require.Error(t, json.Unmarshal([]byte(`true`), &d))
	require.Error(t, json.Unmarshal([]byte(`"soon"`), &d))

	b, err := json.Marshal(Duration{3 * time.Second})
	require.NoError(t, err)
	assert.JSONEq(t, `"3s"`, string(b))
}

func TestDuration_YAML(t *testing.T) {
	var cfg struct {
		TTL Duration `yaml:"ttl"`
		Raw Duration `yaml:"raw"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("ttl: 5m\nraw: 1000\n"), &cfg))
	assert.Equal(t, 5*time.Minute, cfg.TTL.Duration)
	assert.Equal(t, time.Duration(1000), cfg.Raw.Duration)

	require.Error(t, yaml.Unmarshal([]byte("ttl: [1]\n"), &cfg))
}
