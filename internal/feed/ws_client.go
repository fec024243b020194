package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/observability"
)

// ClientConfig configures WebSocket client behavior.
type ClientConfig struct {
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
	// SubscribeTimeout is how long to wait for a subscription ack.
	SubscribeTimeout time.Duration
}

// DefaultClientConfig returns default WebSocket configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// Client implements TradeFeed over the launchpad's WebSocket push
// channel using gorilla/websocket.
type Client struct {
	endpoint string
	config   ClientConfig
	logger   *log.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// subs maps campaign address to delivery channel.
	subs   map[string]chan *domain.Trade
	subsMu sync.RWMutex

	// pendingAcks maps request ID to channel waiting for the ack.
	pendingAcks   map[uint64]chan struct{}
	pendingAcksMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewClient creates a new feed client and connects to the endpoint.
func NewClient(ctx context.Context, endpoint string, config *ClientConfig, logger *log.Logger) (*Client, error) {
	cfg := DefaultClientConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	c := &Client{
		endpoint:    endpoint,
		config:      cfg,
		logger:      logger,
		subs:        make(map[string]chan *domain.Trade),
		pendingAcks: make(map[uint64]chan struct{}),
		done:        make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

var _ TradeFeed = (*Client)(nil)

// connect establishes the WebSocket connection.
func (c *Client) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// Subscribe starts streaming trades for the campaign.
func (c *Client) Subscribe(ctx context.Context, campaignAddress string) (<-chan *domain.Trade, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client closed")
	}

	// Addresses are matched case-insensitively throughout.
	campaignAddress = strings.ToLower(campaignAddress)

	// The channel is registered before the request goes out: the server
	// may push a trade the instant it acks, and that trade must land in
	// the channel, not race its creation.
	// Large buffer absorbs bursts; delivery blocks rather than drops.
	ch := make(chan *domain.Trade, 10000)
	c.subsMu.Lock()
	c.subs[campaignAddress] = ch
	c.subsMu.Unlock()

	if err := c.sendSubscribe(ctx, campaignAddress); err != nil {
		c.subsMu.Lock()
		delete(c.subs, campaignAddress)
		c.subsMu.Unlock()
		return nil, err
	}

	return ch, nil
}

// sendSubscribe writes a subscribe request and waits for the ack.
func (c *Client) sendSubscribe(ctx context.Context, campaignAddress string) error {
	reqID := c.requestID.Add(1)

	req := subscribeRequest{
		Type:     "subscribe",
		Topic:    "trade",
		Campaign: campaignAddress,
		ID:       reqID,
	}

	ackCh := make(chan struct{}, 1)
	c.pendingAcksMu.Lock()
	c.pendingAcks[reqID] = ackCh
	c.pendingAcksMu.Unlock()

	dropPending := func() {
		c.pendingAcksMu.Lock()
		delete(c.pendingAcks, reqID)
		c.pendingAcksMu.Unlock()
	}

	c.connMu.Lock()
	if c.conn == nil {
		c.connMu.Unlock()
		dropPending()
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err := c.conn.WriteJSON(req)
	c.connMu.Unlock()

	if err != nil {
		dropPending()
		return fmt.Errorf("write subscribe: %w", err)
	}

	select {
	case <-ackCh:
		return nil
	case <-time.After(c.config.SubscribeTimeout):
		dropPending()
		return fmt.Errorf("subscription ack timeout after %v", c.config.SubscribeTimeout)
	case <-c.done:
		return fmt.Errorf("client closed")
	case <-ctx.Done():
		dropPending()
		return ctx.Err()
	}
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	c.subsMu.Lock()
	for campaign, ch := range c.subs {
		close(ch)
		delete(c.subs, campaign)
	}
	c.subsMu.Unlock()

	c.pendingAcksMu.Lock()
	for id, ch := range c.pendingAcks {
		close(ch)
		delete(c.pendingAcks, id)
	}
	c.pendingAcksMu.Unlock()

	c.wg.Wait()
	return nil
}

// readLoop reads messages and dispatches to subscribers.
func (c *Client) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read.
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// reconnect attempts to reconnect and resubscribe.
func (c *Client) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	observability.RecordFeedReconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.logger.Printf("Feed reconnect failed: %v", err)
		return
	}

	c.resubscribeAll()
}

// resubscribeAll re-sends subscribe requests for all active campaigns.
func (c *Client) resubscribeAll() {
	c.subsMu.RLock()
	campaigns := make([]string, 0, len(c.subs))
	for campaign := range c.subs {
		campaigns = append(campaigns, campaign)
	}
	c.subsMu.RUnlock()

	for _, campaign := range campaigns {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.sendSubscribe(ctx, campaign)
		cancel()

		if err != nil {
			c.logger.Printf("Feed resubscribe %s failed: %v", campaign, err)
		}
	}
}

// handleMessage processes one incoming WebSocket message.
func (c *Client) handleMessage(message []byte) {
	var envelope struct {
		Type  string          `json:"type"`
		ID    uint64          `json:"id"`
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		return
	}

	switch envelope.Type {
	case "subscribed":
		c.handleAck(envelope.ID)
	case "trade":
		c.handleTrade(envelope.Data)
	case "error":
		// Pending subscribe will time out; nothing to deliver.
		c.logger.Printf("Feed error response: %s", envelope.Error)
	}
}

// handleAck resolves a pending subscribe request.
func (c *Client) handleAck(reqID uint64) {
	c.pendingAcksMu.Lock()
	ch, ok := c.pendingAcks[reqID]
	if ok {
		delete(c.pendingAcks, reqID)
	}
	c.pendingAcksMu.Unlock()

	if ok {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// handleTrade dispatches one pushed trade to its subscriber.
func (c *Client) handleTrade(data json.RawMessage) {
	var msg TradeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Printf("Feed trade unmarshal failed: %v", err)
		return
	}

	trade, err := msg.ToTrade()
	if err != nil {
		c.logger.Printf("Feed trade rejected: %v", err)
		return
	}

	c.subsMu.RLock()
	ch, ok := c.subs[trade.CampaignAddress]
	c.subsMu.RUnlock()

	if ok {
		observability.RecordFeedTrade()
		// Block until we can send, never drop trades.
		select {
		case ch <- trade:
		case <-c.done:
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				// Reader handles reconnect when the connection is dead.
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}

// subscribeRequest is the wire shape of a subscription request.
type subscribeRequest struct {
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	Campaign string `json:"campaign"`
	ID       uint64 `json:"id"`
}
