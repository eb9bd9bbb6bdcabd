package network

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const WAIT_INTERVAL = 1 * time.Second

type connectionInterface struct {
	conn    *websocket.Conn
	request *http.Request

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewConnectionFromExistent wraps an upgraded websocket connection.
func NewConnectionFromExistent(conn *websocket.Conn, request *http.Request) ConnectionInterface {
	return &connectionInterface{conn: conn, request: request}
}

// Connect dials a websocket server, retrying while it is still coming up.
func Connect(url string, retries int) (ConnectionInterface, error) {
	var conn *websocket.Conn
	var err error
	for i := 0; i < retries; i++ {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		time.Sleep(WAIT_INTERVAL)
	}
	if err != nil {
		return nil, err
	}
	return &connectionInterface{conn: conn}, nil
}

func (c *connectionInterface) ReceiveData() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *connectionInterface) SendData(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *connectionInterface) Ping(timeout time.Duration) error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout))
}

func (c *connectionInterface) SetPongHandler(fn func()) {
	c.conn.SetPongHandler(func(string) error {
		fn()
		return nil
	})
}

func (c *connectionInterface) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *connectionInterface) Request() *http.Request {
	return c.request
}

func (c *connectionInterface) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
