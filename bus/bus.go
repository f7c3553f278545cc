// Package bus is a small in-process pub/sub bus with MQTT-style topics,
// retained messages and request/reply.
//
// Topics are sequences of comparable tokens (strings or integers). In
// subscriptions "+" matches exactly one token and "#" (last position only)
// matches zero or more trailing tokens.
package bus

import (
	"context"
	"errors"
	"sync"
)

// -----------------------------------------------------------------------------
// Tokens + Topics
// -----------------------------------------------------------------------------

// Token is a single element in a topic path: a string or an integer.
type Token = any

const (
	wildOne  = "+"
	wildRest = "#"
)

// Topic is a sequence of tokens.
type Topic []Token

// T builds a topic. It panics on tokens that are not strings or integers.
func T(tokens ...Token) Topic {
	for _, tok := range tokens {
		if !validToken(tok) {
			panic("bus: invalid topic token")
		}
	}
	return Topic(tokens)
}

func validToken(t Token) bool {
	switch t.(type) {
	case string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func (t Topic) Len() int       { return len(t) }
func (t Topic) At(i int) Token { return t[i] }

// Append returns a new topic with tokens appended; t is not modified.
func (t Topic) Append(tokens ...Token) Topic {
	out := make(Topic, 0, len(t)+len(tokens))
	out = append(out, t...)
	return append(out, tokens...)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// CanReply reports whether the sender asked for a reply.
func (m *Message) CanReply() bool { return m != nil && len(m.ReplyTo) > 0 }

// NewMessage builds a message; it does not publish it.
func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[Token]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok Token, create bool) *node {
	if c, ok := n.children[tok]; ok {
		return c
	}
	if !create {
		return nil
	}
	if n.children == nil {
		n.children = make(map[Token]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu       sync.Mutex
	subs     *node // subscription patterns
	retained *node // concrete topics with a retained message
	qLen     int
	nextID   uint32
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{
		subs:     &node{},
		retained: &node{},
		qLen:     queueLen,
	}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.subs
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	// Replay retained messages matching the pattern.
	var hits []*Message
	collectRetained(b.retained, sub.topic, &hits)
	for _, m := range hits {
		deliver(sub, m)
	}
}

// Publish delivers a message to every matching subscriber.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		n := b.retained
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}

	var hits []*Subscription
	matchSubs(b.subs, msg.Topic, &hits)
	for _, s := range hits {
		deliver(s, msg)
	}
}

// deliver never blocks: when the queue is full the oldest message is dropped.
func deliver(sub *Subscription, msg *Message) {
	for {
		select {
		case sub.ch <- msg:
			return
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
	}
}

func matchSubs(n *node, topic Topic, out *[]*Subscription) {
	if h := n.child(wildRest, false); h != nil {
		*out = append(*out, h.subs...)
	}
	if len(topic) == 0 {
		*out = append(*out, n.subs...)
		return
	}
	if c := n.child(topic[0], false); c != nil {
		matchSubs(c, topic[1:], out)
	}
	if topic[0] != wildOne {
		if c := n.child(wildOne, false); c != nil {
			matchSubs(c, topic[1:], out)
		}
	}
}

func collectRetained(n *node, pattern Topic, out *[]*Message) {
	if len(pattern) == 0 {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	switch pattern[0] {
	case wildRest:
		collectAll(n, out)
	case wildOne:
		for _, c := range n.children {
			collectRetained(c, pattern[1:], out)
		}
	default:
		if c := n.child(pattern[0], false); c != nil {
			collectRetained(c, pattern[1:], out)
		}
	}
}

func collectAll(n *node, out *[]*Message) {
	if n.retained != nil {
		*out = append(*out, n.retained)
	}
	for _, c := range n.children {
		collectAll(c, out)
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.subs
	stack := []*node{n}
	for _, tok := range sub.topic {
		if n = n.child(tok, false); n == nil {
			return
		}
		stack = append(stack, n)
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}
	// Prune empty nodes.
	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent, c := stack[i], stack[i+1]
		if len(c.subs) != 0 || len(c.children) != 0 {
			break
		}
		delete(parent.children, sub.topic[i])
	}
}

func (b *Bus) replyTopic() Topic {
	b.mu.Lock()
	b.nextID++
	id := int(b.nextID)
	b.mu.Unlock()
	return Topic{"_reply", id}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

type Connection struct {
	bus  *Bus
	subs []*Subscription
	mu   sync.Mutex
	id   string
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a subscription owned by this connection.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.addSubscription(sub)
	return sub
}

// Unsubscribe removes a subscription owned by this connection and closes
// its channel. Unsubscribing twice is a no-op.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(sub)
	close(sub.ch)
}

// Disconnect closes all subscriptions.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}

// Reply answers req on its ReplyTo topic. It is a no-op if no reply was asked for.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if !req.CanReply() {
		return
	}
	c.Publish(c.NewMessage(req.ReplyTo, payload, retained))
}

// Request assigns a fresh ReplyTo, subscribes to it and publishes msg. The
// caller owns the returned subscription.
func (c *Connection) Request(msg *Message) *Subscription {
	msg.ReplyTo = c.bus.replyTopic()
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

var ErrClosed = errors.New("bus: subscription closed")

// RequestWait publishes msg and waits for the first reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case m, ok := <-sub.Channel():
		if !ok {
			return nil, ErrClosed
		}
		return m, nil
	}
}
