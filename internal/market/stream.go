package market

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Subscription is a handle over one push-stream connection. The caller owns
// it and must call Close; there is no automatic reconnection, so a dropped
// connection silently stops delivering updates until the owner tears the
// subscription down and recreates it.
type Subscription struct {
	conn      *websocket.Conn
	logger    *logrus.Logger
	closeOnce sync.Once
	done      chan struct{}
}

func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// Done is closed when the subscription stops delivering, whether by Close or
// by a transport failure.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// StreamDialer opens push-stream subscriptions against the exchange
// websocket endpoint.
type StreamDialer struct {
	baseURL string
	logger  *logrus.Logger
}

func NewStreamDialer(baseURL string, logger *logrus.Logger) *StreamDialer {
	return &StreamDialer{
		baseURL: baseURL,
		logger:  logger,
	}
}

// SubscribeTickers opens one connection covering the @ticker stream of every
// given symbol and invokes callback for each normalized message.
func (d *StreamDialer) SubscribeTickers(symbols []string, callback func(TickerEvent)) (*Subscription, error) {
	streams := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		streams = append(streams, strings.ToLower(symbol)+"@ticker")
	}

	return d.subscribe(strings.Join(streams, "/"), func(payload []byte) {
		var event TickerEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			d.logger.WithError(err).Debug("Dropping malformed ticker frame")
			return
		}
		callback(event)
	})
}

// SubscribeKline opens the @kline stream for one symbol and interval.
func (d *StreamDialer) SubscribeKline(symbol, interval string, callback func(KlineEvent)) (*Subscription, error) {
	stream := fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), interval)

	return d.subscribe(stream, func(payload []byte) {
		var event KlineEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			d.logger.WithError(err).Debug("Dropping malformed kline frame")
			return
		}
		callback(event)
	})
}

// SubscribeTrades opens the @trade stream for one symbol.
func (d *StreamDialer) SubscribeTrades(symbol string, callback func(TradeEvent)) (*Subscription, error) {
	stream := strings.ToLower(symbol) + "@trade"

	return d.subscribe(stream, func(payload []byte) {
		var event TradeEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			d.logger.WithError(err).Debug("Dropping malformed trade frame")
			return
		}
		callback(event)
	})
}

func (d *StreamDialer) subscribe(streamPath string, handle func(payload []byte)) (*Subscription, error) {
	url := d.baseURL + "/" + streamPath

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial stream %s: %w", streamPath, err)
	}

	sub := &Subscription{
		conn:   conn,
		logger: d.logger,
		done:   make(chan struct{}),
	}

	go func() {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-sub.done:
					// Closed by the owner.
				default:
					d.logger.WithError(err).WithField("stream", streamPath).Warn("Stream read failed, updates stopped")
					sub.Close()
				}
				return
			}

			// Combined-stream connections wrap each message in an envelope.
			var frame combinedStreamFrame
			if err := json.Unmarshal(message, &frame); err == nil && frame.Stream != "" {
				handle(frame.Data)
				continue
			}
			handle(message)
		}
	}()

	d.logger.WithField("stream", streamPath).Debug("Stream subscription opened")
	return sub, nil
}
