package configutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_YAML(t *testing.T) {
	var v struct {
		A Duration `yaml:"a"`
		B Duration `yaml:"b"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("a: 1m30s\nb: 5\n"), &v))
	assert.Equal(t, Duration(90*time.Second), v.A)
	assert.Equal(t, Duration(5*time.Second), v.B)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "a: 1m30s\nb: 5s\n", string(out))

	require.Error(t, yaml.Unmarshal([]byte("a: soon\n"), &v))
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"2s"`), &d))
	assert.Equal(t, Duration(2*time.Second), d)
	require.NoError(t, json.Unmarshal([]byte(`1.5`), &d))
	assert.Equal(t, Duration(1500*time.Millisecond), d)
	require.Error(t, json.Unmarshal([]byte(`true`), &d))
}
