package network

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"
)

// streamConn кадры поверх потокового соединения: 4 байта длины (little-endian) и данные
type streamConn struct {
	conn        net.Conn
	reader      *bufio.Reader
	idleTimeout time.Duration
	header      [4]byte
}

func newStreamConn(c net.Conn, idleTimeout time.Duration) *streamConn {
	return &streamConn{
		conn:        c,
		reader:      bufio.NewReaderSize(c, 64*1024),
		idleTimeout: idleTimeout,
	}
}

func (s *streamConn) ReadFrame() ([]byte, error) {
	if s.idleTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
			return nil, err
		}
	}

	if _, err := io.ReadFull(s.reader, s.header[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(s.header[:])
	if length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(s.reader, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (s *streamConn) WriteFrame(frame []byte, timeout time.Duration) error {
	if timeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}

	// Добавляем заголовок с длиной, пишем одним вызовом
	buf := make([]byte, 4+len(frame))
	binary.LittleEndian.PutUint32(buf, uint32(len(frame)))
	copy(buf[4:], frame)
	_, err := s.conn.Write(buf)
	return err
}

func (s *streamConn) Close() error {
	return s.conn.Close()
}

func (s *streamConn) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
