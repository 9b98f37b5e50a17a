package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"aisreporter/internal/config"
	"aisreporter/internal/constants"
	"aisreporter/internal/logger"
	"aisreporter/pkg/metrics"
)

// TCPListener accepts line-based NMEA 0183 feeds. Every connection
// publishes onto the same channel.
type TCPListener struct {
	address string
	channel string
	pub     Publisher
	logger  logger.Logger

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func NewTCPListener(cfg config.ListenerConfig, pub Publisher, log logger.Logger) *TCPListener {
	return &TCPListener{
		address: cfg.Address,
		channel: cfg.Channel,
		pub:     pub,
		logger:  log,
		conns:   make(map[net.Conn]struct{}),
	}
}

func (l *TCPListener) Name() string {
	return fmt.Sprintf("%s://%s", constants.SourceTypeTCP, l.address)
}

// Listen binds the socket and returns the bound address, which differs
// from the configured one when port zero was requested. Run calls it when
// it has not been called yet.
func (l *TCPListener) Listen() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return "", net.ErrClosed
	}
	if l.ln != nil {
		return l.ln.Addr().String(), nil
	}
	ln, err := net.Listen("tcp", l.address)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", l.address, err)
	}
	l.ln = ln
	return ln.Addr().String(), nil
}

func (l *TCPListener) Run(ctx context.Context) error {
	addr, err := l.Listen()
	if err != nil {
		return err
	}
	l.logger.Infow("TCP input listening", "address", addr, "channel", l.channel)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = l.Close()
		case <-stop:
		}
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			_ = l.Close()
			l.wg.Wait()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.logger.Infow("TCP input stopped", "address", addr)
				return nil
			}
			metrics.IncSourceError(constants.SourceTypeTCP)
			return fmt.Errorf("accept on %s: %w", addr, err)
		}

		if !l.track(conn) {
			conn.Close()
			continue
		}
		l.wg.Add(1)
		go l.serve(conn)
	}
}

func (l *TCPListener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return false
	}
	l.conns[conn] = struct{}{}
	return true
}

func (l *TCPListener) serve(conn net.Conn) {
	defer l.wg.Done()
	defer func() {
		l.mu.Lock()
		delete(l.conns, conn)
		l.mu.Unlock()
		conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	l.logger.Infow("TCP client connected", "remote", remote, "channel", l.channel)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), constants.MaxLineBytes)
	for scanner.Scan() {
		publishLines(l.pub, constants.SourceTypeTCP, l.channel, scanner.Bytes())
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		metrics.IncSourceError(constants.SourceTypeTCP)
		l.logger.Warnw("TCP client read failed", "remote", remote, "error", err)
		return
	}
	l.logger.Infow("TCP client disconnected", "remote", remote)
}

// Close stops accepting and drops open connections.
func (l *TCPListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var err error
	if l.ln != nil {
		err = l.ln.Close()
	}
	for conn := range l.conns {
		conn.Close()
	}
	return err
}
