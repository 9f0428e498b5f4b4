package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/negotiation-relay/config"
)

// pingCatcher is a Client safe to read while the keep-alive loop writes.
type pingCatcher struct {
	id     string
	mu     sync.Mutex
	pings  int
	frames []any
}

func (p *pingCatcher) ID() string { return p.id }

func (p *pingCatcher) Send(frame any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frame)
	if _, ok := frame.(PingFrame); ok {
		p.pings++
	}
	return nil
}

func (p *pingCatcher) Bind(string, string)             {}
func (p *pingCatcher) Binding() (string, string, bool) { return "", "", false }
func (p *pingCatcher) Close()                          {}

func (p *pingCatcher) pingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pings
}

func testConfig() config.Config {
	return config.Config{
		SessionTTL:        50 * time.Millisecond,
		SweepInterval:     10 * time.Millisecond,
		KeepAliveInterval: 10 * time.Millisecond,
	}
}

func TestModule_Lifecycle(t *testing.T) {
	m := NewModule(testConfig())
	assert.Equal(t, "relay", m.Name())

	c := &pingCatcher{id: "conn-a"}
	m.Registry().Add(c)
	_, err := m.Store().Create("s1", "T", "Alice", c)
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))

	// The keep-alive loop pings every open connection.
	require.Eventually(t, func() bool {
		return c.pingCount() > 0
	}, time.Second, 5*time.Millisecond, "keep-alive ping never arrived")

	// The sweep loop evicts the session once it outlives the TTL.
	require.Eventually(t, func() bool {
		return m.Store().Len() == 0
	}, time.Second, 5*time.Millisecond, "expired session was never swept")

	require.NoError(t, m.Stop(context.Background()))
}

func TestModule_Health(t *testing.T) {
	m := NewModule(testConfig())
	c := &pingCatcher{id: "conn-a"}
	m.Registry().Add(c)
	_, err := m.Store().Create("s1", "T", "Alice", c)
	require.NoError(t, err)

	health := m.Health(context.Background())
	assert.True(t, health.Healthy)
	assert.Equal(t, 1, health.Details["connections"])
	assert.Equal(t, 1, health.Details["sessions"])
}
