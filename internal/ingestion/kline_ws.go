// Package ingestion feeds live market data into candle storage.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"crypto-call-lab/internal/domain"
	"crypto-call-lab/internal/observability"
	"crypto-call-lab/internal/storage"
)

// KlineFeedConfig configures kline feed behavior.
type KlineFeedConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// StoreTimeout bounds a single candle store write.
	StoreTimeout time.Duration
}

// DefaultKlineFeedConfig returns default kline feed configuration.
func DefaultKlineFeedConfig() KlineFeedConfig {
	return KlineFeedConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		StoreTimeout:      10 * time.Second,
	}
}

// KlineFeed consumes a Binance-style combined kline stream and writes
// closed candles into a candle store. Streams are encoded in the connection
// URL, so reconnecting re-establishes every subscription at once.
type KlineFeed struct {
	endpoint string
	interval string
	config   KlineFeedConfig
	store    storage.CandleStore

	// mintBySymbol maps uppercase exchange symbols to mint addresses.
	mintBySymbol map[string]string

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// done signals shutdown
	done chan struct{}
	wg   sync.WaitGroup

	// reconnecting indicates reconnection in progress
	reconnecting atomic.Bool
}

// NewKlineFeed connects to the combined stream endpoint and starts consuming
// klines for the given symbol-to-mint subscriptions.
func NewKlineFeed(ctx context.Context, endpoint string, subscriptions map[string]string, interval string, store storage.CandleStore, config *KlineFeedConfig) (*KlineFeed, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}
	if len(subscriptions) == 0 {
		return nil, fmt.Errorf("no kline subscriptions")
	}
	if interval == "" {
		interval = "1m"
	}
	if store == nil {
		return nil, fmt.Errorf("nil candle store")
	}

	cfg := DefaultKlineFeedConfig()
	if config != nil {
		cfg = *config
	}

	f := &KlineFeed{
		endpoint:     endpoint,
		interval:     interval,
		config:       cfg,
		store:        store,
		mintBySymbol: make(map[string]string, len(subscriptions)),
		done:         make(chan struct{}),
	}
	for symbol, mint := range subscriptions {
		if symbol == "" || mint == "" {
			return nil, fmt.Errorf("empty symbol or mint in subscriptions")
		}
		f.mintBySymbol[strings.ToUpper(symbol)] = mint
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	observability.DefaultMetrics.KlineStreamsActive.Set(float64(len(f.mintBySymbol)))

	// Start reader goroutine
	f.wg.Add(1)
	go f.readLoop()

	// Start ping goroutine
	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

// streamURL builds the combined stream URL. Symbols are sorted so the URL is
// stable across reconnects.
func (f *KlineFeed) streamURL() string {
	symbols := make([]string, 0, len(f.mintBySymbol))
	for symbol := range f.mintBySymbol {
		symbols = append(symbols, strings.ToLower(symbol))
	}
	sort.Strings(symbols)

	streams := make([]string, len(symbols))
	for i, symbol := range symbols {
		streams[i] = fmt.Sprintf("%s@kline_%s", symbol, f.interval)
	}

	return fmt.Sprintf("%s/stream?streams=%s", strings.TrimRight(f.endpoint, "/"), strings.Join(streams, "/"))
}

// connect establishes the WebSocket connection.
func (f *KlineFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

// Close closes the WebSocket connection and stops all loops.
func (f *KlineFeed) Close() error {
	if f.closed.Swap(true) {
		return nil // Already closed
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	observability.DefaultMetrics.KlineStreamsActive.Set(0)

	f.wg.Wait()
	return nil
}

// readLoop reads messages from the WebSocket and stores closed candles.
func (f *KlineFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			// Connection error - attempt reconnect with exponential backoff
			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

// reconnect waits for the backoff delay and re-dials. Subscriptions live in
// the stream URL, so a successful dial restores them all.
func (f *KlineFeed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	observability.RecordKlineReconnect()

	// Close existing connection
	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		return
	}
}

// handleMessage parses a combined stream payload and stores the candle if
// the kline is closed. Open klines update on every trade and are skipped.
func (f *KlineFeed) handleMessage(message []byte) {
	var env streamEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		observability.RecordIngestionError("parse")
		return
	}
	if env.Data.EventType != "kline" {
		return
	}

	k := env.Data.Kline
	if !k.Closed {
		return
	}

	observability.RecordCandleIngested()

	mint, ok := f.mintBySymbol[strings.ToUpper(env.Data.Symbol)]
	if !ok {
		observability.RecordIngestionError("unknown_symbol")
		return
	}

	candle, err := k.toCandle()
	if err != nil {
		observability.RecordIngestionError("parse")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.config.StoreTimeout)
	defer cancel()

	err = f.store.InsertBulk(ctx, mint, []domain.Candle{candle})
	if errors.Is(err, storage.ErrDuplicateKey) {
		// Stream resends the last closed kline after reconnect
		return
	}
	if err != nil {
		observability.RecordIngestionError("store")
		return
	}

	observability.RecordCandleStored(mint, candle.TimestampMs, time.Now().Unix())
}

// pingLoop sends periodic ping frames to keep connection alive.
func (f *KlineFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			f.connMu.Unlock()
		}
	}
}

// Combined stream message types

type streamEnvelope struct {
	Stream string     `json:"stream"`
	Data   klineEvent `json:"data"`
}

type klineEvent struct {
	EventType string  `json:"e"`
	EventTime int64   `json:"E"`
	Symbol    string  `json:"s"`
	Kline     wsKline `json:"k"`
}

type wsKline struct {
	OpenTimeMs  int64  `json:"t"`
	CloseTimeMs int64  `json:"T"`
	Symbol      string `json:"s"`
	Interval    string `json:"i"`
	Open        string `json:"o"`
	Close       string `json:"c"`
	High        string `json:"h"`
	Low         string `json:"l"`
	Volume      string `json:"v"`
	Closed      bool   `json:"x"`
}

// toCandle converts the exchange kline, which encodes prices as strings,
// into a domain candle.
func (k wsKline) toCandle() (domain.Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse low: %w", err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return domain.Candle{}, fmt.Errorf("parse volume: %w", err)
	}

	return domain.Candle{
		TimestampMs: k.OpenTimeMs,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closePrice,
		Volume:      volume,
	}, nil
}
