// Package mocks provides a scriptable execution client for testing.
package mocks

import (
	"context"
	"sync"

	"github.com/newthinker/dipper/internal/core"
	"github.com/newthinker/dipper/internal/execution"
	"github.com/shopspring/decimal"
)

// Request is one recorded call to the client.
type Request struct {
	Side     core.Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// response is a queued reply.
type response struct {
	fill *execution.Fill
	err  error
}

// Client implements execution.Client. Unless responses are queued it fills
// every request completely at the requested price.
type Client struct {
	mu       sync.Mutex
	requests []Request
	queued   map[core.Side][]response
	failErr  error
}

// New creates a Client that fills everything.
func New() *Client {
	return &Client{
		queued: make(map[core.Side][]response),
	}
}

// Name returns the client name.
func (c *Client) Name() string {
	return "mock"
}

// Buy records the request and returns the next queued buy response.
func (c *Client) Buy(ctx context.Context, quantity, price decimal.Decimal) (*execution.Fill, error) {
	return c.handle(core.SideBuy, quantity, price)
}

// Sell records the request and returns the next queued sell response.
func (c *Client) Sell(ctx context.Context, quantity, price decimal.Decimal) (*execution.Fill, error) {
	return c.handle(core.SideSell, quantity, price)
}

func (c *Client) handle(side core.Side, quantity, price decimal.Decimal) (*execution.Fill, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, Request{Side: side, Quantity: quantity, Price: price})

	if c.failErr != nil {
		return nil, c.failErr
	}
	if q := c.queued[side]; len(q) > 0 {
		next := q[0]
		c.queued[side] = q[1:]
		return next.fill, next.err
	}
	return execution.Filled(quantity, price), nil
}

// QueueBuy queues replies for upcoming buys, consumed in order.
// A nil fill models an absent exchange response.
func (c *Client) QueueBuy(fills ...*execution.Fill) {
	c.queue(core.SideBuy, fills)
}

// QueueSell queues replies for upcoming sells, consumed in order.
func (c *Client) QueueSell(fills ...*execution.Fill) {
	c.queue(core.SideSell, fills)
}

func (c *Client) queue(side core.Side, fills []*execution.Fill) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range fills {
		c.queued[side] = append(c.queued[side], response{fill: f})
	}
}

// SetShouldFail makes every request return err. Pass nil to clear.
func (c *Client) SetShouldFail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failErr = err
}

// Requests returns a copy of all recorded requests.
func (c *Client) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Count returns how many requests of side were made.
func (c *Client) Count(side core.Side) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.requests {
		if r.Side == side {
			n++
		}
	}
	return n
}
