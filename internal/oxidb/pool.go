package oxidb

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Pool is a round-robin set of clients with keepalive and reconnect.
type Pool struct {
	host     string
	port     int
	timeout  time.Duration
	clients  []*Client
	mu       []sync.RWMutex
	idx      uint64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewPool opens size connections and starts a keepalive loop pinging every
// interval. A zero interval disables keepalive.
func NewPool(host string, port, size int, interval time.Duration) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		host:    host,
		port:    port,
		timeout: 5 * time.Second,
		clients: make([]*Client, size),
		mu:      make([]sync.RWMutex, size),
		stop:    make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		c, err := Connect(host, port, p.timeout)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: connect client %d: %w", i, err)
		}
		p.clients[i] = c
	}
	if interval > 0 {
		go p.keepalive(interval)
	}
	return p, nil
}

// Do runs fn with the next client in round-robin order.
func (p *Pool) Do(fn func(c *Client) error) error {
	n := atomic.AddUint64(&p.idx, 1)
	i := int(n % uint64(len(p.clients)))
	p.mu[i].RLock()
	defer p.mu[i].RUnlock()
	return fn(p.clients[i])
}

// Size is the number of connections.
func (p *Pool) Size() int {
	return len(p.clients)
}

func (p *Pool) reconnect(i int) {
	p.mu[i].Lock()
	defer p.mu[i].Unlock()
	if p.clients[i] != nil {
		p.clients[i].Close()
	}
	c, err := Connect(p.host, p.port, p.timeout)
	if err != nil {
		log.Printf("oxidb pool: reconnect client %d failed: %v", i, err)
		return
	}
	p.clients[i] = c
}

func (p *Pool) ping(i int) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	p.mu[i].RLock()
	defer p.mu[i].RUnlock()
	_, err := p.clients[i].Ping(ctx)
	return err
}

func (p *Pool) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			for i := range p.clients {
				if err := p.ping(i); err != nil {
					log.Printf("oxidb pool: client %d ping failed, reconnecting: %v", i, err)
					p.reconnect(i)
				}
			}
		}
	}
}

// Close stops keepalive and closes every connection.
func (p *Pool) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
	for _, c := range p.clients {
		if c != nil {
			c.Close()
		}
	}
}
