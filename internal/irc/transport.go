package irc

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bigbastik/SalutoBot/internal/config"
)

// Transport is a bidirectional byte stream to the server.
type Transport interface {
	// Receive reads at most max bytes. An empty result or io.EOF means the
	// stream has been closed by the server.
	Receive(max int) ([]byte, error)
	// Send writes p in full.
	Send(p []byte) error
	Close() error
}

// Dialer opens a Transport to host:port.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (Transport, error)
}

// NetDialer dials plain TCP or TLS connections.
type NetDialer struct {
	UseTLS    bool
	TLSConfig *tls.Config
	Timeout   time.Duration
}

// NewDialer returns a NetDialer configured from cfg.
func NewDialer(cfg *config.Config) *NetDialer {
	return &NetDialer{
		UseTLS: cfg.UseTLS,
		TLSConfig: &tls.Config{
			ServerName:         cfg.Server,
			InsecureSkipVerify: cfg.Insecure,
		},
		Timeout: 30 * time.Second,
	}
}

// Dial connects to host:port.
func (d *NetDialer) Dial(ctx context.Context, host string, port int) (Transport, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	nd := &net.Dialer{Timeout: d.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if d.UseTLS {
		td := &tls.Dialer{NetDialer: nd, Config: d.TLSConfig}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = nd.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, err
	}
	return NewConnTransport(conn), nil
}

type connTransport struct {
	conn net.Conn
	buf  []byte
	wmu  sync.Mutex
}

// NewConnTransport wraps an established connection.
func NewConnTransport(conn net.Conn) Transport {
	return &connTransport{conn: conn}
}

func (t *connTransport) Receive(max int) ([]byte, error) {
	if cap(t.buf) < max {
		t.buf = make([]byte, max)
	}
	n, err := t.conn.Read(t.buf[:max])
	if n > 0 {
		out := make([]byte, n)
		copy(out, t.buf[:n])
		return out, nil
	}
	return nil, err
}

func (t *connTransport) Send(p []byte) error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	_, err := t.conn.Write(p)
	return err
}

func (t *connTransport) Close() error {
	return t.conn.Close()
}
