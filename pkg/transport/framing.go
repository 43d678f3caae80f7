package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pubsync/pubsync-go/pkg/log"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the big-endian length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize is the default maximum message size (1 MB).
	DefaultMaxMessageSize = 1 << 20

	// MaxLogFrameDataSize caps the frame bytes copied into a log event.
	MaxLogFrameDataSize = 4096
)

// Framing errors.
var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrMessageEmpty    = errors.New("message is empty")
	ErrFrameTruncated  = errors.New("frame truncated")
)

// FrameReadWriter provides framed message I/O.
type FrameReadWriter interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
}

// Framer reads and writes length-prefixed frames on a byte stream. Writes
// are serialized; reads must come from a single goroutine.
type Framer struct {
	r       io.Reader
	w       io.Writer
	maxSize uint32

	writeMu   sync.Mutex
	lengthBuf [LengthPrefixSize]byte

	logger    log.Logger
	sessionID string
}

// NewFramer creates a framer with the default maximum message size.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxMessageSize)
}

// NewFramerWithMaxSize creates a framer that rejects frames above maxSize.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize uint32) *Framer {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Framer{r: rw, w: rw, maxSize: maxSize}
}

// SetLogger captures every frame to logger under sessionID. Pass nil to
// disable capture.
func (f *Framer) SetLogger(logger log.Logger, sessionID string) {
	f.logger = logger
	f.sessionID = sessionID
}

// WriteFrame writes one frame. Safe for concurrent use.
func (f *Framer) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if uint64(len(data)) > uint64(f.maxSize) {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), f.maxSize)
	}

	// One write per frame keeps a frame atomic on the stream.
	buf := make([]byte, LengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(buf, uint32(len(data)))
	copy(buf[LengthPrefixSize:], data)

	f.writeMu.Lock()
	_, err := f.w.Write(buf)
	f.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	f.capture(data, log.DirectionOut)
	return nil
}

// ReadFrame reads one frame and returns its payload. A clean end of stream
// between frames returns io.EOF.
func (f *Framer) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(f.r, f.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(f.lengthBuf[:])
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > f.maxSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, f.maxSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	f.capture(payload, log.DirectionIn)
	return payload, nil
}

func (f *Framer) capture(data []byte, dir log.Direction) {
	if f.logger == nil {
		return
	}
	f.logger.Log(frameEvent(f.sessionID, dir, LengthPrefixSize+len(data), data))
}

// frameEvent builds a transport-layer log event for a frame of size bytes
// carrying data.
func frameEvent(sessionID string, dir log.Direction, size int, data []byte) log.Event {
	truncated := len(data) > MaxLogFrameDataSize
	if truncated {
		data = data[:MaxLogFrameDataSize]
	}
	return log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Direction: dir,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      size,
			Data:      data,
			Truncated: truncated,
		},
	}
}

// FrameSize returns the total frame size including the length prefix.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}

var _ FrameReadWriter = (*Framer)(nil)
