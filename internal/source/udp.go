package source

import (
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

// UDPListener receives NMEA 0183 datagrams, as broadcast by most AIS
// receivers. A datagram may carry several lines.
type UDPListener struct {
	address string
	channel string
	pub     Publisher
	logger  logger.Logger

	mu     sync.Mutex
	conn   net.PacketConn
	closed bool
}

func NewUDPListener(cfg config.ListenerConfig, pub Publisher, log logger.Logger) *UDPListener {
	return &UDPListener{
		address: cfg.Address,
		channel: cfg.Channel,
		pub:     pub,
		logger:  log,
	}
}

func (l *UDPListener) Name() string {
	return fmt.Sprintf("%s://%s", constants.SourceTypeUDP, l.address)
}

// Listen binds the socket and returns the bound address.
func (l *UDPListener) Listen() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return "", net.ErrClosed
	}
	if l.conn != nil {
		return l.conn.LocalAddr().String(), nil
	}
	conn, err := net.ListenPacket("udp", l.address)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", l.address, err)
	}
	l.conn = conn
	return conn.LocalAddr().String(), nil
}

func (l *UDPListener) Run(ctx context.Context) error {
	addr, err := l.Listen()
	if err != nil {
		return err
	}
	l.logger.Infow("UDP input listening", "address", addr, "channel", l.channel)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = l.Close()
		case <-stop:
		}
	}()

	buf := make([]byte, constants.UDPReadBufferBytes)
	for {
		n, _, err := l.conn.ReadFrom(buf)
		if n > 0 {
			publishLines(l.pub, constants.SourceTypeUDP, l.channel, buf[:n])
		}
		if err != nil {
			_ = l.Close()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.logger.Infow("UDP input stopped", "address", addr)
				return nil
			}
			metrics.IncSourceError(constants.SourceTypeUDP)
			return fmt.Errorf("read on %s: %w", addr, err)
		}
	}
}

func (l *UDPListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.conn == nil {
		return nil
	}
	return l.conn.Close()
}
