package main

import (
	"fmt"
	"net/url"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var watchURL string

// watchCmd is a debugging client for the quest event stream.
var watchCmd = &cobra.Command{
	Use:   "watch <userId>",
	Short: "Print quest events of a user as they happen",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base := watchURL
		if base == "" {
			base = fmt.Sprintf("ws://localhost:%s", cfg.Server.Port)
		}
		target := base + "/api/quests/ws/" + url.PathEscape(args[0])

		conn, _, err := websocket.DefaultDialer.Dial(target, nil)
		if err != nil {
			return fmt.Errorf("dial %s: %w", target, err)
		}
		defer conn.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		for {
			_, p, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("read: %w", err)
			}

			var event map[string]any
			if err := json.Unmarshal(p, &event); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", p)
				continue
			}
			pretty, _ := json.MarshalIndent(event, "", "  ")
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", pretty)
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "", "websocket base url (default ws://localhost:<server.port>)")
}
