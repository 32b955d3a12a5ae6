package proxy

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"sjsage522/productbot/logger"
	"sjsage522/productbot/pkg/errors"
)

// ErrNoProxy is returned when the pool has no usable proxy
var ErrNoProxy = stderrors.New("no working proxy")

// Info holds proxy information with latency
type Info struct {
	URL      *url.URL      `json:"url"`
	Latency  time.Duration `json:"latency"`
	LastTest time.Time     `json:"last_test"`
	Working  bool          `json:"working"`
}

// Pool rotates through a fixed list of proxies
type Pool struct {
	proxies     []Info
	next        int
	mutex       sync.Mutex
	dialTimeout time.Duration
}

// Parse builds a pool from a comma-separated list of proxy URLs.
// An empty list yields an empty pool.
func Parse(list string) (*Pool, error) {
	pool := &Pool{dialTimeout: 5 * time.Second}
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return nil, errors.NewConfiguration("invalid proxy URL "+raw, err)
		}
		// Untested proxies are assumed to work
		pool.proxies = append(pool.proxies, Info{URL: u, Working: true})
	}
	return pool, nil
}

// Len returns the number of configured proxies
func (p *Pool) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.proxies)
}

// Test dials every proxy and orders the pool by latency.
// It returns the number of proxies that answered.
func (p *Pool) Test(ctx context.Context) int {
	p.mutex.Lock()
	proxies := make([]Info, len(p.proxies))
	copy(proxies, p.proxies)
	p.mutex.Unlock()

	var wg sync.WaitGroup
	for i := range proxies {
		wg.Add(1)
		go func(proxy *Info) {
			defer wg.Done()
			p.testLatency(ctx, proxy)
		}(&proxies[i])
	}
	wg.Wait()

	sort.SliceStable(proxies, func(i, j int) bool {
		if proxies[i].Working != proxies[j].Working {
			return proxies[i].Working
		}
		return proxies[i].Latency < proxies[j].Latency
	})

	working := 0
	for _, proxy := range proxies {
		if proxy.Working {
			working++
		}
	}

	p.mutex.Lock()
	p.proxies = proxies
	p.next = 0
	p.mutex.Unlock()

	logger.ForProxy().Info().
		Int("total", len(proxies)).
		Int("working", working).
		Msg("Proxy test completed")
	return working
}

func (p *Pool) testLatency(ctx context.Context, proxy *Info) {
	log := logger.ForProxy().WithField("proxy", proxy.URL.Redacted())

	dialer := net.Dialer{Timeout: p.dialTimeout}
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", hostPort(proxy.URL))
	proxy.LastTest = time.Now()
	if err != nil {
		log.Debug().Err(err).Msg("TCP connection failed")
		proxy.Working = false
		proxy.Latency = time.Hour
		return
	}
	conn.Close()

	proxy.Working = true
	proxy.Latency = time.Since(start)
	log.Debug().Dur("latency", proxy.Latency).Msg("Proxy working")
}

// hostPort fills in the scheme's default port
func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	switch u.Scheme {
	case "https":
		port = "443"
	case "socks5", "socks5h":
		port = "1080"
	}
	return net.JoinHostPort(u.Hostname(), port)
}

// Fastest returns the working proxy with the lowest latency
func (p *Pool) Fastest() (*url.URL, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, proxy := range p.proxies {
		if proxy.Working {
			return proxy.URL, nil
		}
	}
	return nil, ErrNoProxy
}

// Next returns working proxies in turn
func (p *Pool) Next() (*url.URL, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for range p.proxies {
		proxy := p.proxies[p.next%len(p.proxies)]
		p.next++
		if proxy.Working {
			return proxy.URL, nil
		}
	}
	return nil, ErrNoProxy
}

// ProxyFunc adapts the pool to http.Transport.Proxy so each request
// goes through the next proxy
func (p *Pool) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(*http.Request) (*url.URL, error) {
		return p.Next()
	}
}

// Stats summarizes the pool for logging
func (p *Pool) Stats() map[string]interface{} {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	working := 0
	for _, proxy := range p.proxies {
		if proxy.Working {
			working++
		}
	}
	return map[string]interface{}{
		"total":   len(p.proxies),
		"working": working,
	}
}
