package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/pairchat/internal/bus"
	"github.com/yourusername/pairchat/internal/models"
	"github.com/yourusername/pairchat/internal/rpc"
)

// DefaultSyncTimeout bounds a full project sync
const DefaultSyncTimeout = 5 * time.Minute

// Client offers typed operations over a Connection
type Client struct {
	conn *Connection
}

// NewClient creates a client over conn
func NewClient(conn *Connection) *Client {
	return &Client{conn: conn}
}

// Connection returns the underlying connection
func (c *Client) Connection() *Connection {
	return c.conn
}

// Ready tells the host the UI has loaded
func (c *Client) Ready() error {
	return c.conn.Registry.Notify(models.CmdReady, nil)
}

// Initialized tells the host the UI has finished its first render
func (c *Client) Initialized() error {
	return c.conn.Registry.Notify(models.CmdInitialized, nil)
}

// Handshake sends ready, waits for the host to pick a view, then sends
// initialized
func (c *Client) Handshake(ctx context.Context) (models.View, error) {
	views := make(chan models.View, 1)
	unsubscribe := c.conn.Bus.Subscribe([]models.Command{models.CmdShowLoginView, models.CmdShowChatView}, func(env models.Envelope) {
		view := models.ViewChat
		if env.Command == models.CmdShowLoginView {
			view = models.ViewLogin
		}
		select {
		case views <- view:
		default:
		}
	})
	defer unsubscribe()

	if err := c.Ready(); err != nil {
		return models.ViewUnknown, err
	}

	select {
	case view := <-views:
		if err := c.Initialized(); err != nil {
			return view, err
		}
		return view, nil
	case <-ctx.Done():
		return models.ViewUnknown, fmt.Errorf("handshake: %w", ctx.Err())
	}
}

// FetchFiles lists project files matching query
func (c *Client) FetchFiles(ctx context.Context, query string) ([]models.FileReference, error) {
	files, err := rpc.Invoke[[]models.FileReference](ctx, c.conn.Registry, models.CmdFetchFiles, models.FetchFilesRequest{Query: query})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// FetchFileContent returns ref with its content filled in
func (c *Client) FetchFileContent(ctx context.Context, ref models.FileReference) (models.FileReference, error) {
	return rpc.Invoke[models.FileReference](ctx, c.conn.Registry, models.CmdFetchFileContent, ref)
}

// SyncProject asks the host to index the project. onProgress, if set,
// receives every sync_progress push until the sync finishes.
func (c *Client) SyncProject(ctx context.Context, onProgress func(models.SyncProgress), opts ...rpc.Option) (models.SyncResult, error) {
	if onProgress != nil {
		unsubscribe := c.conn.Bus.On(models.CmdSyncProgress, func(env models.Envelope) {
			if env.Failed() {
				return
			}
			p, err := models.DecodePayload[models.SyncProgress](env)
			if err != nil {
				return
			}
			onProgress(p)
		})
		defer unsubscribe()
	}

	opts = append([]rpc.Option{rpc.WithTimeout(DefaultSyncTimeout)}, opts...)
	return rpc.Invoke[models.SyncResult](ctx, c.conn.Registry, models.CmdSyncProject, nil, opts...)
}

// OpenExternalURL asks the host to open url in a browser
func (c *Client) OpenExternalURL(url string) error {
	if url == "" {
		return fmt.Errorf("open_external_url: empty url")
	}
	return c.conn.Registry.Notify(models.CmdOpenExternalURL, models.ExternalURL{URL: url})
}

// CreateAuthLink returns a sign-in link
func (c *Client) CreateAuthLink(ctx context.Context) (models.AuthLink, error) {
	return rpc.Invoke[models.AuthLink](ctx, c.conn.Registry, models.CmdCreateAuthLink, nil)
}

// GetUserInfo returns the signed-in user
func (c *Client) GetUserInfo(ctx context.Context) (models.UserInfo, error) {
	return rpc.Invoke[models.UserInfo](ctx, c.conn.Registry, models.CmdGetUserInfo, nil)
}

// GetUserSubscription returns the user's plan
func (c *Client) GetUserSubscription(ctx context.Context) (models.Subscription, error) {
	return rpc.Invoke[models.Subscription](ctx, c.conn.Registry, models.CmdGetUserSubscription, nil)
}

// AttachFigma resolves a Figma frame URL into a design reference
func (c *Client) AttachFigma(ctx context.Context, url string) (models.FigmaDesign, error) {
	return rpc.Invoke[models.FigmaDesign](ctx, c.conn.Registry, models.CmdFigmaAttach, models.FigmaAttachRequest{URL: url})
}

// Logout signs the user out
func (c *Client) Logout() error {
	return c.conn.Registry.Notify(models.CmdLogout, nil)
}

// Subscribe exposes the bus for pushes the typed methods don't cover
func (c *Client) Subscribe(commands []models.Command, h bus.Handler) bus.Unsubscribe {
	return c.conn.Bus.Subscribe(commands, h)
}

// CallMethod sends a generic correlated request with the given command
func (c *Client) CallMethod(ctx context.Context, command string, payload json.RawMessage, opts ...rpc.Option) (json.RawMessage, error) {
	cmd := models.Command(command)
	if !cmd.Known() {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownCommand, command)
	}
	if !cmd.IsRequest() {
		return nil, fmt.Errorf("%s is not a request command", command)
	}
	var p interface{}
	if len(payload) > 0 {
		p = payload
	}
	return c.conn.Registry.Request(ctx, cmd, p, opts...)
}
