package dumpconfig

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
	"gopkg.in/yaml.v3"
)

func TestDump(t *testing.T) {
	t.Parallel()
	fs := config.NewMockFullReader(map[string]string{
		"sensorlink.hcl": `network {
  server = "10.0.0.1:2000"
  passphrase = "secret"
}
sensor {
  kind = "mock"
  name = "vibration"
}`,
	})
	c, err := config.ReadConfig(log2.NewTest(t, log2.LDebug), fs, "sensorlink.hcl")
	require.NoError(t, err)

	buf := bytes.NewBuffer(nil)
	require.NoError(t, Dump(buf, c))
	out := buf.String()
	assert.NotContains(t, out, "secret")
	assert.NotContains(t, out, "include")

	var back map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	network := back["network"].(map[string]interface{})
	assert.Equal(t, "10.0.0.1:2000", network["server"])
	assert.Equal(t, "***", network["passphrase"])
	sampling := back["sampling"].(map[string]interface{})
	assert.Equal(t, config.DefaultMaxRateHz, sampling["max_rate_hz"])
}
