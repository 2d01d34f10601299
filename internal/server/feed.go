package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/vchat/internal/version"
)

// FeedURL converts a server base URL (http or https) to its feed URL.
func FeedURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Tail connects to a feed and calls handle for each frame until ctx is
// cancelled, the server closes the connection, or handle returns an error.
func Tail(ctx context.Context, feedURL string, handle func(Frame) error) error {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, feedURL, header)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", feedURL, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading feed: %w", err)
		}
		if err := handle(f); err != nil {
			return err
		}
	}
}
