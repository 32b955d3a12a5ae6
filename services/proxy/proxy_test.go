package proxy

import (
	"context"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/productbot/pkg/errors"
)

func TestParse(t *testing.T) {
	pool, err := Parse("http://10.0.0.1:3128, socks5://10.0.0.2:1080,,")
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Len())

	pool, err = Parse("")
	require.NoError(t, err)
	assert.Equal(t, 0, pool.Len())

	_, err = Parse("http://10.0.0.1:3128,not a proxy")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestNextRotates(t *testing.T) {
	pool, err := Parse("http://a:1,http://b:2")
	require.NoError(t, err)

	first, err := pool.Next()
	require.NoError(t, err)
	second, err := pool.Next()
	require.NoError(t, err)
	third, err := pool.Next()
	require.NoError(t, err)

	assert.Equal(t, "a:1", first.Host)
	assert.Equal(t, "b:2", second.Host)
	assert.Equal(t, "a:1", third.Host)

	u, err := pool.ProxyFunc()(&http.Request{})
	require.NoError(t, err)
	assert.Equal(t, "b:2", u.Host)
}

func TestEmptyPool(t *testing.T) {
	pool, err := Parse("")
	require.NoError(t, err)

	_, err = pool.Next()
	assert.ErrorIs(t, err, ErrNoProxy)
	_, err = pool.Fastest()
	assert.ErrorIs(t, err, ErrNoProxy)
}

func TestTestOrdersWorkingFirst(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	// Grab a free port and release it so nothing answers there
	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadAddr := closed.Addr().String()
	closed.Close()

	pool, err := Parse("http://" + deadAddr + ",http://" + listener.Addr().String())
	require.NoError(t, err)

	assert.Equal(t, 1, pool.Test(context.Background()))

	fastest, err := pool.Fastest()
	require.NoError(t, err)
	assert.Equal(t, listener.Addr().String(), fastest.Host)

	// The dead proxy is skipped
	for i := 0; i < 3; i++ {
		next, err := pool.Next()
		require.NoError(t, err)
		assert.Equal(t, listener.Addr().String(), next.Host)
	}

	assert.Equal(t, map[string]interface{}{"total": 2, "working": 1}, pool.Stats())
}

func TestHostPortDefaults(t *testing.T) {
	pool, err := Parse("http://proxy.local,https://proxy.local,socks5://proxy.local,http://proxy.local:8080")
	require.NoError(t, err)

	var got []string
	for _, p := range pool.proxies {
		got = append(got, hostPort(p.URL))
	}
	assert.Equal(t, []string{"proxy.local:80", "proxy.local:443", "proxy.local:1080", "proxy.local:8080"}, got)
}
