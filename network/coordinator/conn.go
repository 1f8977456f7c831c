package coordinator

import (
	"bufio"
	"context"
	"io"
	"net"
	"shardman/configs"
	"shardman/network"
	"sync"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Commu serves broadcasts over TCP, one JSON request per line and one JSON
// response line per request.
type Commu struct {
	done     chan bool
	listener net.Listener
	stmt     *Context
	connMap  *sync.Map
	sem      chan struct{}
	wg       sync.WaitGroup
	// mu orders handler registration against Close.
	mu     sync.Mutex
	closed bool
}

func NewConns(stmt *Context, address string) (*Commu, error) {
	res := &Commu{stmt: stmt}
	res.connMap = &sync.Map{}
	res.done = make(chan bool, 1)
	tcpAddr, err := net.ResolveTCPAddr("tcp4", address)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid listen address %s", address)
	}
	res.listener, err = net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", address)
	}
	return res, nil
}

// Addr is the address the listener is bound to.
func (c *Commu) Addr() net.Addr {
	return c.listener.Addr()
}

// Run accepts connections until Close is called.
func (c *Commu) Run() {
	c.sem = make(chan struct{}, configs.MaxConnectionHandler)
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				configs.Warn(false, "accept failed: "+err.Error())
				continue
			}
		}
		configs.TPrintf("accepted a connection from %s", conn.RemoteAddr())
		c.sem <- struct{}{}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			<-c.sem
			_ = conn.Close()
			return
		}
		c.connMap.Store(conn.RemoteAddr().String(), conn)
		c.wg.Add(1)
		c.mu.Unlock()
		go func() {
			defer func() {
				c.connMap.Delete(conn.RemoteAddr().String())
				<-c.sem
				c.wg.Done()
			}()
			c.handleRequest(conn)
		}()
	}
}

// Close stops accepting, drops open client connections and waits for their handlers.
func (c *Commu) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.done <- true
	if err := c.listener.Close(); err != nil {
		configs.Warn(false, err.Error())
	}
	c.connMap.Range(func(key, value interface{}) bool {
		_ = value.(net.Conn).Close()
		return true
	})
	c.wg.Wait()
}

func (c *Commu) handleRequest(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		data, err := reader.ReadBytes('\n')
		if len(data) > 0 {
			if werr := c.reply(conn, c.stmt.handleRequestType(data)); werr != nil {
				configs.Warn(false, "failed to answer "+conn.RemoteAddr().String()+": "+werr.Error())
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				configs.TPrintf("connection %s closed: %v", conn.RemoteAddr(), err)
			}
			return
		}
	}
}

func (c *Commu) reply(conn net.Conn, resp *network.BroadcastResponse) error {
	msg, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	msg = append(msg, '\n')
	_, err = conn.Write(msg)
	return err
}

// handleRequestType decodes one request line and runs it against the Manager.
func (stmt *Context) handleRequestType(requestBytes []byte) *network.BroadcastResponse {
	var request network.BroadcastRequest
	if err := json.Unmarshal(requestBytes, &request); err != nil {
		return &network.BroadcastResponse{Error: errors.Wrap(err, "malformed request").Error()}
	}
	res, err := stmt.Manager.Broadcast(stmt.requestContext(), request.Commands, OptionsOf(&request))
	if err != nil {
		return &network.BroadcastResponse{Error: err.Error()}
	}
	return &network.BroadcastResponse{Result: res}
}

func (stmt *Context) requestContext() context.Context {
	if stmt.ctx == nil {
		return context.Background()
	}
	return stmt.ctx
}
