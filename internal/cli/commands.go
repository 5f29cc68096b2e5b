package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vortextau-chat/internal/auth"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the server offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := newClient().ListModels(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing models: %w", err)
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No models available.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tPARAMETERS\tQUANTIZATION\tMODIFIED")
		for _, m := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				m.Name, humanSize(m.Size), m.Details.ParameterSize, m.Details.QuantizationLevel,
				m.ModifiedAt.Format(time.DateOnly))
		}
		return w.Flush()
	},
}

var recordsModel string

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Show the server's record of completed chats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := newClient().ListRecords(cmd.Context(), recordsModel)
		if err != nil {
			return fmt.Errorf("listing records: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No records.")
			return nil
		}

		names := make([]string, 0, len(records))
		for name := range records {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintln(out, activeStyle.Render(name))
			for _, r := range records[name] {
				fmt.Fprintf(out, "  %s  %s\n", r.Timestamp.Local().Format(time.DateTime), truncate(r.Message, 60))
			}
		}
		return nil
	},
}

var shareCmd = &cobra.Command{
	Use:   "share [chat-id]",
	Short: "Share a local chat and print its share id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chats, err := openChatStore()
		if err != nil {
			return err
		}
		sess := newSession(cmd.OutOrStdout(), chats, nil, newClient())

		chat, err := sess.lookupOrActive(firstArg(args))
		if err != nil {
			return err
		}
		id, err := newClient().ShareChat(cmd.Context(), chat)
		if err != nil {
			return fmt.Errorf("sharing chat: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open <share-id>",
	Short: "Import a shared chat into the local chat list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chats, err := openChatStore()
		if err != nil {
			return err
		}
		sess := newSession(cmd.OutOrStdout(), chats, nil, newClient())
		_, err = sess.handleSlash(cmd.Context(), "/open "+args[0])
		return err
	},
}

var (
	tokenClientID string
	tokenSecret   string
	tokenTTL      time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a server that has JWT_SECRET set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := tokenSecret
		if secret == "" {
			secret = os.Getenv("JWT_SECRET")
		}
		if secret == "" {
			return errors.New("a secret is required: pass --secret or set JWT_SECRET")
		}
		token, err := auth.NewAccessToken(tokenClientID, secret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	recordsCmd.Flags().StringVar(&recordsModel, "for", "", "only show records for this model")

	tokenCmd.Flags().StringVar(&tokenClientID, "client-id", "vortex", "client id embedded in the token")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "signing secret (default $JWT_SECRET)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 30*24*time.Hour, "token lifetime")
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func humanSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
