package stream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
)

// Stream packet header.
const (
	protocolName     = "HueStream"
	packetHeaderSize = 16

	offsetMajorVersion = 9
	offsetColorSpace   = 14

	maxDatagramSize = 65535
)

// ParsePacket extracts the frame from a stream datagram.
func ParsePacket(pkt []byte) (Frame, error) {
	if len(pkt) < packetHeaderSize || string(pkt[:len(protocolName)]) != protocolName {
		return Frame{}, ErrInvalidPacket
	}
	data := make([]byte, len(pkt)-packetHeaderSize)
	copy(data, pkt[packetHeaderSize:])
	return Frame{
		ColorMode: int(pkt[offsetColorSpace]),
		Version:   int(pkt[offsetMajorVersion]),
		Data:      data,
	}, nil
}

// EncodePacket builds a stream datagram around a frame.
func EncodePacket(f Frame, sequence uint8) []byte {
	pkt := make([]byte, packetHeaderSize, packetHeaderSize+len(f.Data))
	copy(pkt, protocolName)
	pkt[offsetMajorVersion] = byte(f.Version)
	pkt[offsetMajorVersion+2] = sequence
	pkt[offsetColorSpace] = byte(f.ColorMode)
	return append(pkt, f.Data...)
}

// FrameHandler receives every well-formed frame.
type FrameHandler interface {
	Offer(f Frame) error
}

// Receiver listens for stream datagrams and hands their frames on.
type Receiver struct {
	addr    string
	handler FrameHandler

	mu     sync.Mutex
	conn   net.PacketConn
	wg     sync.WaitGroup
	logger Logger
}

// NewReceiver creates a receiver for addr ("host:port").
func NewReceiver(addr string, handler FrameHandler) *Receiver {
	return &Receiver{addr: addr, handler: handler, logger: noopLogger{}}
}

// SetLogger sets the logger for the receiver.
func (r *Receiver) SetLogger(logger Logger) {
	r.logger = logger
}

// Start binds the socket and begins reading in the background.
func (r *Receiver) Start(ctx context.Context) error {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", r.addr)
	if err != nil {
		return fmt.Errorf("listening for stream on %s: %w", r.addr, err)
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	r.logger.Info("stream receiver listening", "addr", conn.LocalAddr().String())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.readLoop(conn)
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (r *Receiver) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Close stops the receiver and waits for the read loop to exit.
func (r *Receiver) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	r.wg.Wait()
	return err
}

func (r *Receiver) readLoop(conn net.PacketConn) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.Warn("stream read failed", "error", err)
			continue
		}

		frame, err := ParsePacket(buf[:n])
		if err != nil {
			r.logger.Debug("dropping datagram", "from", from.String(), "bytes", n, "error", err)
			continue
		}
		if err := r.handler.Offer(frame); err != nil {
			r.logger.Debug("frame rejected", "from", from.String(), "error", err)
		}
	}
}
