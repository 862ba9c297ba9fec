package ingestion

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/observability"
)

// WebSocket feed defaults.
const (
	wsHandshakeTimeout  = 10 * time.Second
	wsWriteTimeout      = 10 * time.Second
	wsReconnectDelay    = 1 * time.Second
	wsMaxReconnectDelay = 30 * time.Second
	maxBufferedSamples  = 4096
)

// wsPriceMessage is one tick from the price stream.
type wsPriceMessage struct {
	Mint        string  `json:"mint"`
	Price       float64 `json:"price"`
	Volume      float64 `json:"volume"`
	TimestampMs int64   `json:"ts_ms"`
}

// wsSubscribeRequest subscribes the connection to a mint's tick stream.
type wsSubscribeRequest struct {
	Op   string `json:"op"`
	Mint string `json:"mint"`
}

// WSPriceSource is a PriceSource fed by a live WebSocket tick stream.
// Ticks are buffered per mint (bounded); Fetch serves from the buffer.
// The connection reconnects with exponential backoff and resubscribes.
type WSPriceSource struct {
	endpoint string
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.RWMutex
	samples map[string][]domain.PriceSample
	subs    map[string]bool
}

// NewWSPriceSource connects to the price stream endpoint and starts the
// read loop.
func NewWSPriceSource(ctx context.Context, endpoint string, logger *log.Logger) (*WSPriceSource, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[ws-price] ", log.LstdFlags)
	}

	s := &WSPriceSource{
		endpoint: endpoint,
		logger:   logger,
		done:     make(chan struct{}),
		samples:  make(map[string][]domain.PriceSample),
		subs:     make(map[string]bool),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.readLoop()

	return s, nil
}

// connect establishes the WebSocket connection.
func (s *WSPriceSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Subscribe starts buffering ticks for a mint. Subscribing an already
// subscribed mint is a no-op, so callers may subscribe per request.
func (s *WSPriceSource) Subscribe(mint string) error {
	if s.closed.Load() {
		return fmt.Errorf("price source closed")
	}

	s.mu.Lock()
	if s.subs[mint] {
		s.mu.Unlock()
		return nil
	}
	s.subs[mint] = true
	s.mu.Unlock()

	return s.writeSubscribe(mint)
}

func (s *WSPriceSource) writeSubscribe(mint string) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}
	s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.conn.WriteJSON(wsSubscribeRequest{Op: "subscribe", Mint: mint}); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop consumes ticks and reconnects on failure until Close.
func (s *WSPriceSource) readLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			s.reconnect()
			continue
		}

		var msg wsPriceMessage
		started := time.Now()
		if err := conn.ReadJSON(&msg); err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Printf("read failed, reconnecting: %v", err)
			s.reconnect()
			continue
		}
		observability.DefaultMetrics.WSMessageLatency.Observe(time.Since(started).Seconds())

		if msg.Mint == "" {
			continue
		}
		s.buffer(msg)
	}
}

// buffer appends a tick, discarding the oldest once the bound is hit.
func (s *WSPriceSource) buffer(msg wsPriceMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.subs[msg.Mint] {
		return
	}

	buf := append(s.samples[msg.Mint], domain.PriceSample{
		Mint:        msg.Mint,
		TimestampMs: msg.TimestampMs,
		Price:       msg.Price,
		Volume:      msg.Volume,
	})
	if len(buf) > maxBufferedSamples {
		buf = buf[len(buf)-maxBufferedSamples:]
	}
	s.samples[msg.Mint] = buf
}

// reconnect redials with exponential backoff and resubscribes.
func (s *WSPriceSource) reconnect() {
	delay := wsReconnectDelay
	for {
		select {
		case <-s.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), wsHandshakeTimeout)
		err := s.connect(ctx)
		cancel()
		if err == nil {
			s.mu.RLock()
			mints := make([]string, 0, len(s.subs))
			for mint := range s.subs {
				mints = append(mints, mint)
			}
			s.mu.RUnlock()

			for _, mint := range mints {
				if err := s.writeSubscribe(mint); err != nil {
					s.logger.Printf("resubscribe %s failed: %v", mint, err)
				}
			}
			return
		}

		s.logger.Printf("reconnect failed: %v", err)
		delay *= 2
		if delay > wsMaxReconnectDelay {
			delay = wsMaxReconnectDelay
		}
	}
}

// Fetch returns buffered samples for a mint within [from, to], normalized
// to a strictly increasing time axis. The first fetch for a mint
// subscribes it, so the buffer fills from that point on and later windows
// carry data.
func (s *WSPriceSource) Fetch(_ context.Context, mint string, from, to int64) ([]domain.PriceSample, error) {
	if err := s.Subscribe(mint); err != nil {
		return nil, err
	}

	s.mu.RLock()
	buf := s.samples[mint]
	window := make([]domain.PriceSample, 0, len(buf))
	for _, sample := range buf {
		if sample.TimestampMs >= from && sample.TimestampMs <= to {
			window = append(window, sample)
		}
	}
	s.mu.RUnlock()

	return NormalizePrices(window), nil
}

// Close shuts the feed down.
func (s *WSPriceSource) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	return nil
}

var _ PriceSource = (*WSPriceSource)(nil)
