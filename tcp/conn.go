package tcp

import (
	"net"
	"sync"
)

// Conn adapts one accepted socket into the client the router and the
// chat service deliver through. The reading side belongs to the
// handler goroutine; Send may be called from any goroutine.
type Conn struct {
	name string
	sock net.Conn
	mu   sync.Mutex
}

func newConn(sock net.Conn) *Conn {
	return &Conn{sock: sock}
}

func (c *Conn) Name() string {
	return c.name
}

// Send writes one newline-terminated line. The single Write under the
// mutex keeps concurrent deliveries from interleaving mid-line.
func (c *Conn) Send(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.sock.Write([]byte(line + "\n"))
	return err
}

func (c *Conn) Close() error {
	return c.sock.Close()
}

func (c *Conn) RemoteAddr() string {
	return c.sock.RemoteAddr().String()
}
