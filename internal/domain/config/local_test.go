package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLocalConfig(t *testing.T) {
	c, err := DecodeLocalConfig([]byte(`{"network":"sepolia","protocol_version":" v2 "}`))
	require.NoError(t, err)
	assert.Equal(t, &LocalConfig{Network: "sepolia", ProtocolVersion: "v2"}, c)

	_, err = DecodeLocalConfig([]byte(`{"salt":"padded"}`))
	assert.EqualError(t, err, `config key "salt" must be spelled "salt_strategy"`)

	_, err = DecodeLocalConfig([]byte(`{"namespace":"prod"}`))
	assert.EqualError(t, err, `unknown config key "namespace"`)
}

func TestLocalConfig_Encode(t *testing.T) {
	data, err := (&LocalConfig{SaltStrategy: "padded"}).Encode()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"salt_strategy\": \"padded\"\n}\n", string(data))

	data, err = (&LocalConfig{}).Encode()
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}
