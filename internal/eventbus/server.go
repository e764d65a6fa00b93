package eventbus

import (
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
)

// RandomPort asks the embedded server to pick a free port.
const RandomPort = natsserver.RANDOM_PORT

// readyTimeout bounds how long StartServer waits for the listener.
const readyTimeout = 5 * time.Second

// Server is an in-process NATS server that lets local tools follow a run
// without an external broker.
type Server struct {
	ns *natsserver.Server
}

// StartServer starts an embedded server on host:port. Use RandomPort for
// an ephemeral port.
func StartServer(host string, port int) (*Server, error) {
	if host == "" {
		host = "127.0.0.1"
	}
	opts := &natsserver.Options{
		Host:   host,
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create nats server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("nats server not ready after %s", readyTimeout)
	}
	return &Server{ns: ns}, nil
}

// ClientURL returns the URL clients connect to.
func (s *Server) ClientURL() string {
	return s.ns.ClientURL()
}

// Close stops the server and waits for it to exit.
func (s *Server) Close() {
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
}
