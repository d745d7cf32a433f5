// Package binance streams closed klines from the Binance spot websocket
// as engine ticks. The connection reconnects with a flat backoff and
// resubscribes, so the feed looks infinite to the scheduler.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rustyeddy/stratengine/market"
)

const DefaultURL = "wss://stream.binance.com:9443/ws"

type Config struct {
	URL       string
	Symbols   []string
	Timeframe market.Timeframe

	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	PingInterval  time.Duration
	ReconnectWait time.Duration
}

func (c *Config) defaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 5 * time.Second
	}
}

// Feed is a feed.Feed over Binance kline streams. Only closed candles
// (the kline "x" flag) are emitted; in-progress candles are skipped so
// indicator state never sees a partial bar.
type Feed struct {
	cfg Config

	ticks  chan market.Tick
	errs   chan error
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) (*Feed, error) {
	cfg.defaults()
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("binance: at least one symbol is required")
	}
	if !cfg.Timeframe.Valid() {
		return nil, fmt.Errorf("binance: invalid timeframe %q", cfg.Timeframe)
	}
	return &Feed{
		cfg:   cfg,
		ticks: make(chan market.Tick, 256),
		errs:  make(chan error, 8),
	}, nil
}

// Start dials the stream and begins pumping ticks. The first dial must
// succeed; later disconnects reconnect in the background.
func (f *Feed) Start(ctx context.Context) error {
	f.ctx, f.cancel = context.WithCancel(ctx)

	conn, err := f.dial()
	if err != nil {
		f.cancel()
		return err
	}

	f.wg.Add(1)
	go f.run(conn)
	return nil
}

func (f *Feed) Ticks() <-chan market.Tick { return f.ticks }
func (f *Feed) Errs() <-chan error        { return f.errs }

func (f *Feed) Close() error {
	f.cancel()
	f.wg.Wait()
	return nil
}

func (f *Feed) dial() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(f.ctx, f.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("binance: dial %s: %w", f.cfg.URL, err)
	}

	if err := f.subscribe(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (f *Feed) subscribe(conn *websocket.Conn) error {
	params := make([]string, 0, len(f.cfg.Symbols))
	for _, s := range f.cfg.Symbols {
		params = append(params, fmt.Sprintf("%s@kline_%s", strings.ToLower(s), f.cfg.Timeframe))
	}

	payload := map[string]any{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     time.Now().Unix(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("binance: subscribe: %w", err)
	}
	return nil
}

// run keeps one session alive at a time, reconnecting until the context
// ends.
func (f *Feed) run(conn *websocket.Conn) {
	defer f.wg.Done()
	defer close(f.ticks)

	for {
		if conn != nil {
			f.session(conn)
			conn = nil
		}

		select {
		case <-f.ctx.Done():
			return
		case <-time.After(f.cfg.ReconnectWait):
		}

		next, err := f.dial()
		if err != nil {
			f.report(err)
			continue
		}
		conn = next
	}
}

// session reads one connection until it breaks.
func (f *Feed) session(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
	})

	// Keepalive pings double as a dead-connection watchdog: a silent
	// peer trips the read deadline and forces a reconnect.
	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(f.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-f.ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				deadline := time.Now().Add(f.cfg.WriteTimeout)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if f.ctx.Err() == nil {
				f.report(fmt.Errorf("binance: read: %w", err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))

		tick, ok, err := parseKline(raw)
		if err != nil {
			f.report(err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case f.ticks <- tick:
		case <-f.ctx.Done():
			return
		}
	}
}

func (f *Feed) report(err error) {
	select {
	case f.errs <- err:
	default:
	}
}

type klineEvent struct {
	Event string `json:"e"`
	// EventTime must be declared so the "E" key doesn't fall back onto
	// the case-insensitive match for "e" and fail to unmarshal.
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Kline  struct {
		Interval  string `json:"i"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		CloseTime int64  `json:"T"`
		Final     bool   `json:"x"`
	} `json:"k"`
}

// parseKline returns ok=false for non-kline frames (subscribe acks) and
// for candles still in progress.
func parseKline(raw []byte) (market.Tick, bool, error) {
	var ev klineEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return market.Tick{}, false, fmt.Errorf("binance: parse frame: %w", err)
	}
	if ev.Event != "kline" || !ev.Kline.Final {
		return market.Tick{}, false, nil
	}

	tf := market.Timeframe(ev.Kline.Interval)
	if !tf.Valid() {
		return market.Tick{}, false, fmt.Errorf("binance: unsupported interval %q", ev.Kline.Interval)
	}

	vals := make([]float64, 5)
	for i, s := range []string{ev.Kline.Open, ev.Kline.High, ev.Kline.Low, ev.Kline.Close, ev.Kline.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Tick{}, false, fmt.Errorf("binance: parse kline field %q: %w", s, err)
		}
		vals[i] = v
	}

	return market.Tick{
		Symbol:    ev.Symbol,
		Timeframe: tf,
		Candle: market.Candle{
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
			Time:   time.UnixMilli(ev.Kline.CloseTime).UTC(),
		},
	}, true, nil
}
