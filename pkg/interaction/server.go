package interaction

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/pubsync/pubsync-go/pkg/wire"
)

// DefaultPushInterval is how often a simulated stream publishes.
const DefaultPushInterval = time.Second

// ServerConfig configures a simulated publisher.
type ServerConfig struct {
	// Restricted channels answer NOT_AUTHORIZED.
	Restricted []string

	// Unavailable channels answer UNAVAILABLE.
	Unavailable []string

	// DropRate is the probability in [0,1] that a subscribe or query gets
	// no answer at all.
	DropRate float64

	// WarnEvery attaches a warning issue to every n-th push of a stream.
	// Zero disables warnings.
	WarnEvery int

	// PushInterval is the period of each stream's pushes.
	PushInterval time.Duration

	// Seed seeds the drop decisions.
	Seed uint64

	// Logger is the structured logger. Nil discards output.
	Logger *slog.Logger
}

// Server is an in-memory publisher that answers subscribe, query and
// unsubscribe requests and pushes periodic updates on open streams.
type Server struct {
	mu sync.Mutex

	config ServerConfig
	logger *slog.Logger
	rng    *rand.Rand

	streams map[string]*stream
}

// stream is an open subscription on the publisher side.
type stream struct {
	key      string
	channel  string
	params   any
	opened   time.Time
	lastPush time.Time
	pushes   uint64
}

// Snapshot is the payload the simulated publisher sends.
type Snapshot struct {
	Channel string    `cbor:"1,keyasint"`
	Seq     uint64    `cbor:"2,keyasint"`
	At      time.Time `cbor:"3,keyasint"`
	Params  any       `cbor:"4,keyasint,omitempty"`
}

// NewServer creates a simulated publisher.
func NewServer(config ServerConfig) *Server {
	if config.PushInterval <= 0 {
		config.PushInterval = DefaultPushInterval
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		config:  config,
		logger:  logger,
		rng:     rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
		streams: make(map[string]*stream),
	}
}

// HandleFrame decodes a request frame and returns the encoded responses.
func (s *Server) HandleFrame(now time.Time, data []byte) ([][]byte, error) {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		return nil, err
	}
	return encodeAll(s.HandleRequest(now, req))
}

// HandleRequest processes a request and returns the responses to send,
// possibly none.
func (s *Server) HandleRequest(now time.Time, req *wire.Request) []*wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Operation {
	case wire.OpSubscribe, wire.OpQuery:
		return s.handleOpen(now, req)
	case wire.OpUnsubscribe:
		s.handleUnsubscribe(req)
		return nil
	default:
		return []*wire.Response{s.errorResponse(req, wire.StatusInvalid, "unknown operation")}
	}
}

func (s *Server) handleOpen(now time.Time, req *wire.Request) []*wire.Response {
	if s.config.DropRate > 0 && s.rng.Float64() < s.config.DropRate {
		s.logger.Debug("dropping request", "key", req.Key, "channel", req.Channel)
		return nil
	}
	if slices.Contains(s.config.Restricted, req.Channel) {
		return []*wire.Response{s.errorResponse(req, wire.StatusNotAuthorized, "channel "+req.Channel+" is restricted")}
	}
	if slices.Contains(s.config.Unavailable, req.Channel) {
		return []*wire.Response{s.errorResponse(req, wire.StatusUnavailable, "channel "+req.Channel+" is unavailable")}
	}
	if _, exists := s.streams[req.Key]; exists {
		return []*wire.Response{s.errorResponse(req, wire.StatusInvalid, "key "+req.Key+" already in use")}
	}

	resp := &wire.Response{
		MessageID: req.MessageID,
		Key:       req.Key,
		Status:    wire.StatusOK,
		Final:     true,
		Payload:   Snapshot{Channel: req.Channel, At: now, Params: req.Params},
	}

	if req.Operation == wire.OpSubscribe {
		s.streams[req.Key] = &stream{
			key:      req.Key,
			channel:  req.Channel,
			params:   req.Params,
			opened:   now,
			lastPush: now,
		}
		s.logger.Debug("stream opened", "key", req.Key, "channel", req.Channel)
	}
	return []*wire.Response{resp}
}

func (s *Server) handleUnsubscribe(req *wire.Request) {
	if _, ok := s.streams[req.Key]; !ok {
		return
	}
	delete(s.streams, req.Key)
	s.logger.Debug("stream closed", "key", req.Key, "channel", req.Channel)
}

// Pushes returns the updates due at now, one per stream whose push
// interval has elapsed, in key order.
func (s *Server) Pushes(now time.Time) []*wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*wire.Response
	for _, key := range s.sortedKeys() {
		st := s.streams[key]
		if now.Sub(st.lastPush) < s.config.PushInterval {
			continue
		}
		st.lastPush = now
		st.pushes++

		push := &wire.Response{
			MessageID: wire.PushMessageID,
			Key:       st.key,
			Status:    wire.StatusOK,
			Payload:   Snapshot{Channel: st.channel, Seq: st.pushes, At: now, Params: st.params},
		}
		if s.config.WarnEvery > 0 && st.pushes%uint64(s.config.WarnEvery) == 0 {
			push.Issues = []wire.Issue{{Code: wire.IssueWarning, Text: fmt.Sprintf("push %d delayed upstream", st.pushes)}}
		}
		out = append(out, push)
	}
	return out
}

// EncodedPushes is Pushes encoded for a transport.
func (s *Server) EncodedPushes(now time.Time) ([][]byte, error) {
	return encodeAll(s.Pushes(now))
}

// CancelAll breaks every open stream, returning one SUBSCRIPTION issue push
// per stream.
func (s *Server) CancelAll(reason string) []*wire.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*wire.Response
	for _, key := range s.sortedKeys() {
		out = append(out, &wire.Response{
			MessageID: wire.PushMessageID,
			Key:       key,
			Status:    wire.StatusOK,
			Issues:    []wire.Issue{{Code: wire.IssueSubscription, Text: reason}},
		})
	}
	clear(s.streams)
	return out
}

// StreamCount returns the number of open streams.
func (s *Server) StreamCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// HasStream reports whether key has an open stream.
func (s *Server) HasStream(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.streams[key]
	return ok
}

func (s *Server) sortedKeys() []string {
	keys := make([]string, 0, len(s.streams))
	for k := range s.streams {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *Server) errorResponse(req *wire.Request, status wire.Status, text string) *wire.Response {
	s.logger.Debug("rejecting request", "key", req.Key, "channel", req.Channel, "status", status, "reason", text)
	return &wire.Response{
		MessageID: req.MessageID,
		Key:       req.Key,
		Status:    status,
		Final:     true,
	}
}

func encodeAll(resps []*wire.Response) ([][]byte, error) {
	out := make([][]byte, 0, len(resps))
	for _, r := range resps {
		data, err := wire.EncodeResponse(r)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}
