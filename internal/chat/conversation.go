// Package chat keeps the conversation transcript and streams assistant
// replies.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/pairchat/internal/bus"
	"github.com/yourusername/pairchat/internal/logging"
	"github.com/yourusername/pairchat/internal/models"
	"github.com/yourusername/pairchat/internal/rpc"
)

// DefaultTimeout bounds a single assistant reply
const DefaultTimeout = 2 * time.Minute

// Options configures a Conversation
type Options struct {
	Timeout time.Duration
	// OnDelta is called for every streamed chunk, in arrival order
	OnDelta func(models.MessageDelta)
	// OnMessage is called whenever a message is added or finalized
	OnMessage func(models.ChatMessage)
}

// Conversation is one chat session with the assistant
type Conversation struct {
	reg *rpc.Registry
	opt Options

	mu         sync.Mutex
	transcript []models.ChatMessage
	partial    map[string]*strings.Builder
	asked      map[string]bool // ids of our own new_message requests

	unsubscribe bus.Unsubscribe
	log         zerolog.Logger
}

// New starts a conversation listening for deltas and host messages on b
func New(reg *rpc.Registry, b *bus.Bus, opt Options) *Conversation {
	if opt.Timeout <= 0 {
		opt.Timeout = DefaultTimeout
	}
	c := &Conversation{
		reg:     reg,
		opt:     opt,
		partial: make(map[string]*strings.Builder),
		asked:   make(map[string]bool),
		log:     logging.For("chat"),
	}
	c.unsubscribe = b.Subscribe([]models.Command{models.CmdMessageTextDelta, models.CmdNewMessage}, c.handle)
	return c
}

// Ask sends a user message and waits for the assistant's final reply
func (c *Conversation) Ask(ctx context.Context, text string, files []models.FileReference, designs []models.FigmaDesign) (models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatMessage{}, fmt.Errorf("empty message")
	}

	msg := models.ChatMessage{
		ID:        models.NewID(),
		Role:      models.RoleUser,
		Text:      text,
		Files:     files,
		Designs:   designs,
		CreatedAt: time.Now(),
	}
	c.upsert(msg)

	reply, err := rpc.Invoke[models.ChatMessage](ctx, c.reg, models.CmdNewMessage,
		models.NewMessageRequest{Message: msg}, rpc.WithTimeout(c.opt.Timeout), rpc.OnRegistered(c.markAsked))
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("new_message: %w", err)
	}
	return c.finalize(reply), nil
}

// Transcript returns a copy of every message so far
func (c *Conversation) Transcript() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ChatMessage, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Partial returns the text streamed so far for a message still in progress
func (c *Conversation) Partial(messageID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.partial[messageID]; ok {
		return b.String()
	}
	return ""
}

// Close stops listening for host messages
func (c *Conversation) Close() {
	c.unsubscribe()
}

func (c *Conversation) handle(env models.Envelope) {
	if env.Failed() {
		// the requester sees the error through the registry
		return
	}
	switch env.Command {
	case models.CmdMessageTextDelta:
		delta, err := models.DecodePayload[models.MessageDelta](env)
		if err != nil || delta.MessageID == "" {
			c.log.Warn().Err(err).Msg("bad message_text_delta payload")
			return
		}
		c.mu.Lock()
		b, ok := c.partial[delta.MessageID]
		if !ok {
			b = &strings.Builder{}
			c.partial[delta.MessageID] = b
		}
		b.WriteString(delta.Delta)
		c.mu.Unlock()
		if c.opt.OnDelta != nil {
			c.opt.OnDelta(delta)
		}

	case models.CmdNewMessage:
		c.mu.Lock()
		own := c.asked[env.ID]
		c.mu.Unlock()
		if own {
			// Ask finalizes the answer to its own request
			return
		}
		msg, err := models.DecodePayload[models.ChatMessage](env)
		if err != nil || msg.ID == "" {
			c.log.Warn().Err(err).Msg("bad new_message payload")
			return
		}
		c.finalize(msg)
	}
}

func (c *Conversation) markAsked(id string) {
	c.mu.Lock()
	c.asked[id] = true
	c.mu.Unlock()
}

// finalize records msg as complete. Streamed text is used only when the
// final message carries none.
func (c *Conversation) finalize(msg models.ChatMessage) models.ChatMessage {
	if msg.Role == "" {
		msg.Role = models.RoleAssistant
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	c.mu.Lock()
	if b, ok := c.partial[msg.ID]; ok {
		if msg.Text == "" {
			msg.Text = b.String()
		}
		delete(c.partial, msg.ID)
	}
	c.mu.Unlock()
	return c.upsert(msg)
}

// upsert adds msg or replaces the message with the same id, keeping the
// earlier text if msg has none
func (c *Conversation) upsert(msg models.ChatMessage) models.ChatMessage {
	c.mu.Lock()
	replaced := false
	for i := range c.transcript {
		if c.transcript[i].ID == msg.ID {
			if msg.Text == "" {
				msg.Text = c.transcript[i].Text
			}
			c.transcript[i] = msg
			replaced = true
			break
		}
	}
	if !replaced {
		c.transcript = append(c.transcript, msg)
	}
	c.mu.Unlock()

	if c.opt.OnMessage != nil {
		c.opt.OnMessage(msg)
	}
	return msg
}
