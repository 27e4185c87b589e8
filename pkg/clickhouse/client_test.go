package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsNative(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []ClientOption{
		WithHost("ch.internal"),
		WithPort(9440),
		WithDatabase("kangbo"),
		WithCredentials("writer", "secret"),
		WithTimeouts(2*time.Second, 0),
		WithMaxExecutionTime(90 * time.Second),
	} {
		opt(&cfg)
	}

	o := options(cfg)
	assert.Equal(t, []string{"ch.internal:9440"}, o.Addr)
	assert.Equal(t, "kangbo", o.Auth.Database)
	assert.Equal(t, "writer", o.Auth.Username)
	assert.Equal(t, "secret", o.Auth.Password)
	assert.Equal(t, ch.Native, o.Protocol)
	assert.Equal(t, 2*time.Second, o.DialTimeout)
	assert.Equal(t, 30*time.Second, o.ReadTimeout)
	assert.Equal(t, 90, o.Settings["max_execution_time"])
	require.NotNil(t, o.Compression)
	assert.Equal(t, ch.CompressionLZ4, o.Compression.Method)
}

func TestOptionsHTTPKeepsDefaults(t *testing.T) {
	cfg := defaultConfig()
	WithHost("localhost")(&cfg)
	WithHTTP(true)(&cfg)
	WithCredentials("", "")(&cfg)
	WithPort(0)(&cfg)

	o := options(cfg)
	assert.Equal(t, ch.HTTP, o.Protocol)
	assert.Equal(t, []string{"localhost:9000"}, o.Addr)
	assert.Equal(t, "default", o.Auth.Username)
	assert.NotContains(t, o.Settings, "max_execution_time")
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
