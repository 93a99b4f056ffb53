package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"givebox/backend/internal/config"
	"givebox/backend/internal/geo"
	"givebox/backend/internal/livelocation"
	"givebox/backend/internal/models"
	"givebox/backend/internal/peer"

	"github.com/spf13/cobra"
)

type options struct {
	baseURL      string
	token        string
	conversation string
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:           "peer",
		Short:         "Headless conversation peer for the givebox realtime API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("GIVEBOX_TOKEN"), "bearer token (default $GIVEBOX_TOKEN)")
	root.PersistentFlags().StringVarP(&opts.conversation, "conversation", "c", "", "conversation (request) ID")
	_ = root.MarkPersistentFlagRequired("conversation")

	root.AddCommand(followCmd(opts), sendCmd(opts))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (o *options) client() (*peer.Client, error) {
	if o.token == "" {
		return nil, fmt.Errorf("a token is required (--token or GIVEBOX_TOKEN)")
	}
	return peer.New(o.baseURL, o.token)
}

func sendCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "send <text>",
		Short: "Send a text message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			msg, err := c.SendMessage(cmd.Context(), opts.conversation, models.MessageText, args[0], nil)
			if err != nil {
				return err
			}
			fmt.Printf("sent message %d\n", msg.ID)
			return nil
		},
	}
}

func followCmd(opts *options) *cobra.Command {
	var (
		share    time.Duration
		track    string
		lat, lng float64
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "follow",
		Short: "Print the conversation as it happens, optionally sharing a live location",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := opts.client()
			if err != nil {
				return err
			}

			stream, err := c.Connect(ctx)
			if err != nil {
				return err
			}
			defer stream.Close()

			conv, err := c.Follow(ctx, stream, opts.conversation, config.DefaultPresenceStaleAfter)
			if err != nil {
				return err
			}
			for _, m := range conv.Timeline.Messages() {
				printMessage(c.UserID, m)
			}
			if err := c.SetPresence(ctx, opts.conversation, true); err != nil {
				slog.WarnContext(ctx, "set presence failed", "error", err)
			}
			go stream.KeepAlive(ctx)

			if share > 0 {
				provider, err := locationProvider(track, lat, lng, interval)
				if err != nil {
					return err
				}
				session := livelocation.NewSession(opts.conversation, c, provider)
				if err := session.Start(ctx, share); err != nil {
					return err
				}
				defer session.Close()
				fmt.Printf("sharing live location until %s\n", session.ExpiresAt().Format(time.Kitchen))
			}

			err = printFrames(ctx, c.UserID, stream, conv)

			// Best effort; the server also marks us offline when the socket closes.
			offCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = c.SetPresence(offCtx, opts.conversation, false)
			return err
		},
	}

	f := cmd.Flags()
	f.DurationVar(&share, "share", 0, "share a live location for this long (1m..8h)")
	f.StringVar(&track, "track", "", "JSON file of positions to replay while sharing")
	f.Float64Var(&lat, "lat", 0, "fixed latitude when no track is given")
	f.Float64Var(&lng, "lng", 0, "fixed longitude when no track is given")
	f.DurationVar(&interval, "interval", 5*time.Second, "time between replayed positions")
	return cmd
}

func locationProvider(track string, lat, lng float64, interval time.Duration) (geo.Provider, error) {
	if track == "" {
		if err := geo.CheckCoordinates(lat, lng); err != nil {
			return nil, err
		}
		return geo.Fixed(lat, lng, interval), nil
	}
	f, err := os.Open(track)
	if err != nil {
		return nil, fmt.Errorf("open track: %w", err)
	}
	defer f.Close()
	return geo.LoadTrack(f, interval)
}

func printFrames(ctx context.Context, self string, stream *peer.Stream, conv *peer.Conversation) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f, ok := <-stream.Frames():
			if !ok {
				return stream.Err()
			}
			added, err := conv.Handle(f)
			if err != nil {
				slog.WarnContext(ctx, "dropping malformed change", "error", err)
				continue
			}
			for _, m := range added {
				printMessage(self, m)
			}
			if f.Change != nil && f.Change.Table != models.TableMessages {
				printPeers(conv)
			}
		}
	}
}

func printMessage(self string, m models.Message) {
	who := m.SenderID
	if who == self {
		who = "me"
	}
	fmt.Printf("[%s] %s (%s): %s\n", m.CreatedAt.Local().Format(time.Kitchen), who, m.Type, m.Content)
}

func printPeers(conv *peer.Conversation) {
	now := time.Now()
	for _, p := range conv.Presence.Snapshot(now) {
		state := "offline"
		if p.Online {
			state = "online"
		}
		line := fmt.Sprintf("  %s is %s", p.UserID, state)
		if loc, ok := conv.Locations.Get(p.UserID, now); ok {
			line += fmt.Sprintf(" at %.5f,%.5f", loc.Latitude, loc.Longitude)
		}
		fmt.Println(line)
	}
}
