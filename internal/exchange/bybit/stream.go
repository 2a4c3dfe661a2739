package bybit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

const (
	mainnetStreamURL = "wss://stream.bybit.com/v5/public/"
	testnetStreamURL = "wss://stream-testnet.bybit.com/v5/public/"
	streamPing       = 20 * time.Second
	subscribeAck     = 10 * time.Second
)

// ErrSubscriptionRejected is returned when the venue refuses a kline topic
var ErrSubscriptionRejected = errors.New("subscription rejected")

// KlineStream delivers closed candles from the public websocket. Bybit pushes
// the forming candle repeatedly and marks the final update with confirm=true;
// only those are emitted.
type KlineStream struct {
	url          string
	log          *logger.Logger
	dialer       *websocket.Dialer
	pingInterval time.Duration
	ackTimeout   time.Duration
	reconnect    RetryConfig
}

// NewKlineStream targets the public stream of category (spot or linear)
func NewKlineStream(category string, testnet bool, log *logger.Logger) *KlineStream {
	base := mainnetStreamURL
	if testnet {
		base = testnetStreamURL
	}
	if category == "" {
		category = "spot"
	}
	return NewKlineStreamWithURL(base+category, log)
}

// NewKlineStreamWithURL connects to an explicit websocket endpoint
func NewKlineStreamWithURL(url string, log *logger.Logger) *KlineStream {
	if log == nil {
		log = logger.NewNop()
	}
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	return &KlineStream{
		url:          url,
		log:          log,
		dialer:       &dialer,
		pingInterval: streamPing,
		ackTimeout:   subscribeAck,
		reconnect:    RetryConfig{MaxRetries: 10, InitialDelay: time.Second, MaxDelay: time.Minute},
	}
}

func klineTopic(symbol string, interval KlineInterval) string {
	return fmt.Sprintf("kline.%s.%s", interval, strings.ToUpper(symbol))
}

type streamMessage struct {
	Topic   string        `json:"topic"`
	Type    string        `json:"type"`
	Data    []streamKline `json:"data"`
	Op      string        `json:"op"`
	Success *bool         `json:"success"`
	RetMsg  string        `json:"ret_msg"`
}

type streamKline struct {
	Start   int64  `json:"start"`
	Open    string `json:"open"`
	High    string `json:"high"`
	Low     string `json:"low"`
	Close   string `json:"close"`
	Volume  string `json:"volume"`
	Confirm bool   `json:"confirm"`
}

// parseStreamMessage returns the confirmed candles of a topic push
func parseStreamMessage(raw []byte, topic string) ([]types.OHLCV, error) {
	var msg streamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode stream message: %w", err)
	}
	if msg.Op == "subscribe" && msg.Success != nil && !*msg.Success {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionRejected, msg.RetMsg)
	}
	if msg.Topic != topic {
		return nil, nil
	}

	var out []types.OHLCV
	for _, k := range msg.Data {
		if !k.Confirm {
			continue
		}
		out = append(out, types.OHLCV{
			Timestamp: time.UnixMilli(k.Start).UTC(),
			Open:      parseFloat64(k.Open),
			High:      parseFloat64(k.High),
			Low:       parseFloat64(k.Low),
			Close:     parseFloat64(k.Close),
			Volume:    parseFloat64(k.Volume),
		})
	}
	return out, nil
}

// Subscribe streams confirmed candles until ctx is done. Dropped connections are
// redialed with exponential backoff; the channel closes when ctx ends, the venue
// rejects the topic or reconnecting gives up.
func (s *KlineStream) Subscribe(ctx context.Context, symbol string, interval KlineInterval) (<-chan types.OHLCV, error) {
	topic := klineTopic(symbol, interval)
	conn, err := s.connect(ctx, topic)
	if err != nil {
		return nil, err
	}

	out := make(chan types.OHLCV, 16)
	go func() {
		defer close(out)
		for {
			if err := s.pump(ctx, conn, topic, out); errors.Is(err, ErrSubscriptionRejected) {
				s.log.LogError("kline stream "+topic, err)
				return
			}
			if ctx.Err() != nil {
				return
			}

			s.log.Warning("kline stream %s disconnected, reconnecting", topic)
			err := backoff.Retry(func() error {
				c, err := s.connect(ctx, topic)
				if errors.Is(err, ErrSubscriptionRejected) {
					return backoff.Permanent(err)
				}
				if err != nil {
					return err
				}
				conn = c
				return nil
			}, s.reconnect.backOff(ctx))
			if err != nil {
				s.log.LogError("kline stream reconnect", err)
				return
			}
		}
	}()
	return out, nil
}

func (s *KlineStream) connect(ctx context.Context, topic string) (*websocket.Conn, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.url, err)
	}
	sub := map[string]interface{}{"op": "subscribe", "args": []string{topic}}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	if err := s.awaitAck(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	s.log.Info("subscribed to %s on %s", topic, s.url)
	return conn, nil
}

// awaitAck reads until the venue answers the subscribe request
func (s *KlineStream) awaitAck(conn *websocket.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(s.ackTimeout)); err != nil {
		return err
	}
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("no subscribe acknowledgement: %w", err)
		}
		var msg streamMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Op != "subscribe" || msg.Success == nil {
			continue
		}
		if !*msg.Success {
			return fmt.Errorf("%w: %s", ErrSubscriptionRejected, msg.RetMsg)
		}
		return conn.SetReadDeadline(time.Time{})
	}
}

// pump reads conn until it fails, the topic is rejected or ctx ends, then closes it
func (s *KlineStream) pump(ctx context.Context, conn *websocket.Conn, topic string, out chan<- types.OHLCV) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteJSON(map[string]string{"op": "ping"}); err != nil {
					s.log.Warning("kline stream ping failed: %v", err)
					conn.Close()
					return
				}
			}
		}
	}()

	defer conn.Close()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warning("kline stream read error: %v", err)
			}
			return err
		}
		candles, err := parseStreamMessage(raw, topic)
		if errors.Is(err, ErrSubscriptionRejected) {
			return err
		}
		if err != nil {
			s.log.Warning("%v", err)
			continue
		}
		for _, c := range candles {
			select {
			case out <- c:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
