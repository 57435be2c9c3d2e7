package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/pairchat/internal/wire"
)

// Kinds accepted by Open
const (
	KindStdio     = "stdio"
	KindUnix      = "unix"
	KindWebSocket = "websocket"
)

// Options selects and configures a transport
type Options struct {
	Kind          string
	SocketPath    string
	URL           string
	Framing       string
	MaxFrameBytes int
	WriteTimeout  time.Duration
}

// Open creates the transport described by opts
func Open(ctx context.Context, opts Options) (Transport, error) {
	switch opts.Kind {
	case KindStdio:
		codec, err := wire.ByName(opts.Framing, opts.MaxFrameBytes)
		if err != nil {
			return nil, err
		}
		return Stdio(codec), nil
	case "", KindUnix:
		codec, err := wire.ByName(opts.Framing, opts.MaxFrameBytes)
		if err != nil {
			return nil, err
		}
		return DialUnix(ctx, opts.SocketPath, codec, opts.WriteTimeout)
	case KindWebSocket:
		return DialWebSocket(ctx, opts.URL, nil, opts.MaxFrameBytes)
	default:
		return nil, fmt.Errorf("unknown transport kind %q", opts.Kind)
	}
}
