package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// DefaultStreamURL is the Binance combined WebSocket stream endpoint.
const DefaultStreamURL = "wss://stream.binance.com:9443"

// MiniTicker is one 24hr rolling mini-ticker event from the stream.
type MiniTicker struct {
	EventType   string `json:"e"`
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	Close       string `json:"c"`
	Open        string `json:"o"`
	High        string `json:"h"`
	Low         string `json:"l"`
	Volume      string `json:"v"`
	QuoteVolume string `json:"q"`
}

// combinedEvent is the envelope of a combined-stream message.
type combinedEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// Stream delivers live mini-ticker events for a fixed set of symbols
// over a single combined WebSocket connection.
type Stream struct {
	baseURL string
	symbols []string

	conn   *websocket.Conn
	connMu sync.Mutex

	events chan MiniTicker
	done   chan struct{}
	logger *slog.Logger
}

// NewStream creates a ticker stream for the given symbols. An empty
// baseURL selects the production stream endpoint.
func NewStream(baseURL string, symbols []string, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultStreamURL
	}
	return &Stream{
		baseURL: baseURL,
		symbols: symbols,
		events:  make(chan MiniTicker, 100),
		done:    make(chan struct{}),
		logger:  logger.With("component", "binance.stream"),
	}
}

// Connect dials the combined stream and starts the read loop. The
// events channel closes when the connection drops or Close is called.
func (s *Stream) Connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if len(s.symbols) == 0 {
		return fmt.Errorf("no symbols to subscribe")
	}

	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		streams = append(streams, strings.ToLower(sym)+"@miniTicker")
	}
	wsURL := s.baseURL + "/stream?streams=" + strings.Join(streams, "/")

	s.logger.Info("connecting to ticker stream", "url", wsURL, "symbols", len(s.symbols))

	dialer := websocket.Dialer{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 4 * 1024,
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	s.conn = conn

	go s.readLoop(conn)
	return nil
}

// Events returns the ticker event channel.
func (s *Stream) Events() <-chan MiniTicker {
	return s.events
}

// Close shuts the connection down and drains the read loop.
func (s *Stream) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}

	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Stream) readLoop(conn *websocket.Conn) {
	defer close(s.events)

	for {
		var env combinedEvent
		if err := conn.ReadJSON(&env); err != nil {
			select {
			case <-s.done:
				// Deliberate shutdown.
			default:
				s.logger.Warn("ticker stream read failed", "error", err)
			}
			return
		}

		var tick MiniTicker
		if err := json.Unmarshal(env.Data, &tick); err != nil {
			s.logger.Warn("malformed ticker event", "stream", env.Stream, "error", err)
			continue
		}

		select {
		case s.events <- tick:
		case <-s.done:
			return
		default:
			// Slow consumer: drop the oldest pending event.
			select {
			case <-s.events:
			default:
			}
			select {
			case s.events <- tick:
			default:
			}
		}
	}
}
