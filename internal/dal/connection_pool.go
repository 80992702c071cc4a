package dal

import (
	"sync"
)

// ConnectionPool manages a pool of Couchbase connections
type ConnectionPool struct {
	connections chan *Connection
	maxSize     int
}

var (
	pool     *ConnectionPool
	poolOnce sync.Once
)

// GetConnOrGenConn gets a connection from the pool or creates a new one
func GetConnOrGenConn() (*Connection, error) {
	poolOnce.Do(func() {
		pool = &ConnectionPool{
			connections: make(chan *Connection, 5),
			maxSize:     5,
		}
	})

	select {
	case conn := <-pool.connections:
		if isConnectionAlive(conn) {
			return conn, nil
		}
		return NewConnection()
	default:
		// Pool is empty, create new connection
		return NewConnection()
	}
}

// ReturnConnection returns a connection to the pool
func ReturnConnection(conn *Connection) {
	if conn == nil {
		return
	}

	if !isConnectionAlive(conn) {
		// Dead connections are discarded, not pooled
		return
	}

	select {
	case pool.connections <- conn:
	default:
		// Pool is full, discard connection
	}
}

// isConnectionAlive pings the cluster to check the connection still works
func isConnectionAlive(conn *Connection) bool {
	if conn == nil || conn.cluster == nil {
		return false
	}
	_, err := conn.cluster.Ping(nil)
	return err == nil
}
