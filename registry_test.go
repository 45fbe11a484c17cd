package sender

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_InitConstructsOnce(t *testing.T) {
	registry := &Registry{}
	dialer := &fakeDialer{}

	config := DefaultConfig()
	config.Dialer = dialer
	config.Prefix = "first"
	config.SystemName = ""

	first, err := registry.Init(context.Background(), config)
	require.NoError(t, err)

	config.Prefix = "second"
	second, err := registry.Init(context.Background(), config)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "first.", second.Prefix())
	assert.Same(t, first, registry.Get())
	assert.Equal(t, 1, dialer.dials)
}

func TestRegistry_Reset(t *testing.T) {
	registry := &Registry{}
	dialer := &fakeDialer{}

	config := DefaultConfig()
	config.Dialer = dialer
	config.SystemName = ""

	first, err := registry.Init(context.Background(), config)
	require.NoError(t, err)

	registry.Reset()
	assert.Nil(t, registry.Get())
	assert.Equal(t, StateDisconnected, first.State())
	assert.True(t, dialer.conns[0].closed)

	second, err := registry.Init(context.Background(), config)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, dialer.dials)

	registry.Reset()
	registry.Reset()
}

func TestRegistry_InitFailureLeavesRegistryEmpty(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	registry := &Registry{}
	_, err = registry.Init(context.Background(), testConfig(t, addr))

	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.Nil(t, registry.Get())
}

func TestRegistry_InitFromMap(t *testing.T) {
	endpoint, err := NewMockEndpoint()
	require.NoError(t, err)
	defer endpoint.Close()

	host, port, err := net.SplitHostPort(endpoint.Addr())
	require.NoError(t, err)

	registry := &Registry{}
	defer registry.Reset()

	client, err := registry.InitFromMap(context.Background(), map[string]any{
		"graphite_server": host,
		"graphite_port":   port,
		"prefix":          "custom prefix",
		"system_name":     "",
	})
	require.NoError(t, err)
	assert.Equal(t, "custom_prefix.", client.Prefix())
	assert.Equal(t, endpoint.Addr(), client.Addr())

	_, err = (&Registry{}).InitFromMap(context.Background(), map[string]any{"unknown": 1})
	assert.Error(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	defer Reset()

	config := DefaultConfig()
	config.Dialer = &fakeDialer{}
	client, err := Init(context.Background(), config)
	require.NoError(t, err)
	assert.Same(t, client, Get())

	Reset()
	assert.Nil(t, Get())
}
