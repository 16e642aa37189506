package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-live/internal/feed"
	"github.com/jonathan/resume-live/internal/live"
	"github.com/jonathan/resume-live/internal/logger"
	"github.com/jonathan/resume-live/internal/observability"
	"github.com/jonathan/resume-live/internal/types"
)

const (
	watchFetchTimeout = 10 * time.Second
	watchRetryDelay   = 2 * time.Second
	watchListLimit    = 500
)

var (
	watchURL      string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running server's live review in the terminal",
	Long: `Connects to a server's websocket feed and keeps a local copy of the live
display, printing it periodically. State is refetched over HTTP whenever the
feed signals a resync or the target changes.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "http://localhost:8080", "Base URL of the server")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "How often to print the display")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	_, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	client, err := newLiveClient(watchURL, log)
	if err != nil {
		return err
	}
	printer := observability.NewPrinter(cmd.OutOrStdout())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	changes := make(chan feed.Change, 64)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(changes)
		return client.Follow(ctx, changes)
	})
	g.Go(func() error {
		return client.Session().Run(ctx, changes)
	})
	g.Go(func() error {
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				printer.PrintSnapshot(client.Session().Snapshot())
			}
		}
	})
	return g.Wait()
}

// liveClient mirrors a server's display session from its HTTP API and
// websocket feed.
type liveClient struct {
	base    *url.URL
	http    *http.Client
	session *live.Session
	logger  *zap.Logger
}

func newLiveClient(rawURL string, log *zap.Logger) (*liveClient, error) {
	base, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", rawURL)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", base.Scheme)
	}

	c := &liveClient{
		base:   base,
		http:   &http.Client{Timeout: watchFetchTimeout},
		logger: logger.Named(log, "watch"),
	}
	c.session = live.NewSession(
		live.WithLogger(c.logger),
		live.WithTargetHook(c.reload),
		live.WithResyncHook(func(string, bool) { c.resync() }),
	)
	return c, nil
}

func (c *liveClient) Session() *live.Session {
	return c.session
}

// feedURL returns the websocket address of the server's feed.
func (c *liveClient) feedURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/feed/ws"
	return u.String()
}

// Follow streams feed changes into out until ctx is cancelled, reconnecting
// after errors. Every connection starts with a resync.
func (c *liveClient) Follow(ctx context.Context, out chan<- feed.Change) error {
	for {
		err := c.stream(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("feed connection lost, reconnecting", zap.Error(err), zap.Duration("delay", watchRetryDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(watchRetryDelay):
		}
	}
}

func (c *liveClient) stream(ctx context.Context, out chan<- feed.Change) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.feedURL(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to feed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()
	c.logger.Info("connected to feed", zap.String("url", c.feedURL()))

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var change feed.Change
		if err := conn.ReadJSON(&change); err != nil {
			return err
		}
		select {
		case out <- change:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// resync points the session at the server's current target and display
// settings. When the target is unchanged the rows are reloaded directly.
func (c *liveClient) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), watchFetchTimeout)
	defer cancel()

	var display types.SettingsRecord
	if err := c.getJSON(ctx, "/settings/"+types.SettingsDisplay, nil, &display); err != nil {
		c.logger.Warn("failed to fetch display settings", zap.Error(err))
	} else {
		var d types.DisplaySettings
		if err := json.Unmarshal(display.Value, &d); err == nil {
			c.session.SetDisplay(d)
		}
	}

	var target types.Target
	if err := c.getJSON(ctx, "/target", nil, &target); err != nil {
		c.logger.Warn("failed to fetch target", zap.Error(err))
		return
	}
	name, ok := target.Current()
	if !c.session.SetTarget(name, ok) {
		c.reload(name, ok)
	}
}

// reload replaces the session's lists with the target's rows.
func (c *liveClient) reload(target string, set bool) {
	if !set {
		c.session.Load(nil, nil, nil)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), watchFetchTimeout)
	defer cancel()

	var (
		ratings   []types.Rating
		chat      []types.ChatMessage
		questions []types.Question
	)
	q := url.Values{"target": {target}, "limit": {strconv.Itoa(watchListLimit)}}
	if err := c.getJSON(ctx, "/ratings", q, &ratings); err != nil {
		c.logger.Warn("failed to fetch ratings", zap.Error(err))
		return
	}
	q.Set("limit", strconv.Itoa(live.DefaultChatLimit))
	if err := c.getJSON(ctx, "/chat", q, &chat); err != nil {
		c.logger.Warn("failed to fetch chat", zap.Error(err))
		return
	}
	if err := c.getJSON(ctx, "/questions", url.Values{"target": {target}, "answered": {"true"}}, &questions); err != nil {
		c.logger.Warn("failed to fetch questions", zap.Error(err))
		return
	}
	if !c.session.Cell().Matches(target) {
		return
	}
	c.session.Load(ratings, chat, questions)
}

func (c *liveClient) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("GET %s: failed to decode response: %w", path, err)
	}
	return nil
}
