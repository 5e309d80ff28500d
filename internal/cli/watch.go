package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var sends []string
	var jsonOutput bool
	var count int

	cmd := &cobra.Command{
		Use:   "watch <lobby|leaderboard|game|hole N>",
		Short: "Stream frames from a websocket channel",
		Long: `Connect to one of the server's websocket channels and print every frame.

Channels:
  lobby        - players_list updates
  leaderboard  - leaderboard updates
  game         - gameplay on your current hole
  hole N       - gameplay on hole N

Frames given with --send are written after connecting, in order.

Press Ctrl+C to disconnect.`,
		Example: `  golfcli watch lobby --send '{"type":"toggle_ready"}'
  golfcli watch hole 3 --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := channelPath(args)
			if err != nil {
				return err
			}
			url, err := cfg.WebsocketURL(path)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			w := &Watcher{
				URL:   url,
				Token: cfg.Token,
				Send:  sends,
				Count: count,
				JSON:  jsonOutput,
				Out:   os.Stdout,
			}
			return w.Run(ctx)
		},
	}

	cmd.Flags().StringArrayVar(&sends, "send", nil, "JSON frame to send after connecting, repeatable")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output frames as JSON lines")
	cmd.Flags().IntVar(&count, "count", 0, "Exit after this many frames (0 streams until interrupted)")

	return cmd
}

// channelPath maps watch arguments onto a websocket route
func channelPath(args []string) (string, error) {
	switch args[0] {
	case "lobby", "leaderboard", "game":
		if len(args) != 1 {
			return "", fmt.Errorf("%s takes no arguments", args[0])
		}
		return "/ws/" + args[0] + "/", nil
	case "hole":
		if len(args) != 2 {
			return "", errors.New("hole requires a hole number")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return "", fmt.Errorf("invalid hole %q", args[1])
		}
		return "/ws/game/hole/" + strconv.Itoa(n) + "/", nil
	default:
		return "", fmt.Errorf("unknown channel %q", args[0])
	}
}

// Frame is one received websocket message in --json output
type Frame struct {
	Time time.Time       `json:"time"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Watcher streams frames from a single websocket channel to Out
type Watcher struct {
	URL   string
	Token string
	Send  []string
	Count int
	JSON  bool
	Out   io.Writer
}

// Run connects, writes the Send frames and prints incoming frames until ctx
// is cancelled, the server closes, or Count frames have been printed
func (w *Watcher) Run(ctx context.Context) error {
	for _, frame := range w.Send {
		if !json.Valid([]byte(frame)) {
			return fmt.Errorf("--send frame is not valid JSON: %s", frame)
		}
	}

	header := http.Header{}
	if w.Token != "" {
		header.Set("Authorization", "Bearer "+w.Token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, w.URL, header)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("handshake rejected: HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock ReadMessage on cancellation
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for _, frame := range w.Send {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			return fmt.Errorf("send failed: %w", err)
		}
	}

	if !w.JSON {
		fmt.Fprintf(w.Out, "Connected to %s\n", w.URL)
	}

	received := 0
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				if !w.JSON {
					fmt.Fprintln(w.Out, "Disconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		w.print(data)

		received++
		if w.Count > 0 && received >= w.Count {
			return nil
		}
	}
}

func (w *Watcher) print(data []byte) {
	var head struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(data, &head)
	now := time.Now()

	if w.JSON {
		line, err := json.Marshal(Frame{Time: now, Type: head.Type, Data: data})
		if err != nil {
			// Server sent something that is not JSON
			line, _ = json.Marshal(Frame{Time: now, Data: json.RawMessage(strconv.Quote(string(data)))})
		}
		fmt.Fprintln(w.Out, string(line))
		return
	}

	display := string(data)
	if len(display) > 200 {
		display = display[:200] + "..."
	}
	fmt.Fprintf(w.Out, "[%s] %s: %s\n", now.Format("2006-01-02 15:04:05"), head.Type, display)
}
