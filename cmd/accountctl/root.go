package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/myaibookkeeper/bookkeeper/internal/account"
	"github.com/myaibookkeeper/bookkeeper/internal/models"
)

const version = "0.0.1"

type cliOptions struct {
	apiURL string
	token  string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "accountctl",
		Short:         "Manage your My AI Bookkeeper account from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("BOOKKEEPER_API_URL", "http://localhost:8081"), "Account API base URL")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("BOOKKEEPER_SESSION_TOKEN"), "Session token (defaults to BOOKKEEPER_SESSION_TOKEN)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newStatusCmd(opts),
		newCancelCmd(opts),
		newDeleteCmd(opts),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the accountctl version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// terminalNotifier prints operation outcomes to the command's streams
type terminalNotifier struct {
	cmd *cobra.Command
}

func (n *terminalNotifier) Success(msg string) {
	fmt.Fprintln(n.cmd.OutOrStdout(), msg)
}

func (n *terminalNotifier) Error(msg string) {
	fmt.Fprintln(n.cmd.ErrOrStderr(), "error:", msg)
}

// terminalNavigator has nowhere to navigate; it tells the user instead
type terminalNavigator struct {
	cmd *cobra.Command
}

func (n *terminalNavigator) RedirectTo(path string) {
	fmt.Fprintf(n.cmd.OutOrStdout(), "Your session has ended. Visit %s to start over.\n", path)
}

// immediateScheduler skips the UI grace delay; there is no page to read
type immediateScheduler struct{}

func (immediateScheduler) AfterFunc(_ time.Duration, fn func()) { fn() }

// fileSink writes the data export into the working directory
type fileSink struct {
	cmd *cobra.Command
}

func (s *fileSink) Save(filename string, data []byte) error {
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(s.cmd.OutOrStdout(), "Export saved to %s\n", filename)
	return nil
}

// tokenSignal reports ready as soon as a session token is present; the
// token is the CLI's proof of a signed-in user.
type tokenSignal struct {
	token string
}

func (s *tokenSignal) Ready() bool { return s.token != "" }
func (s *tokenSignal) User() *models.Profile {
	if s.token == "" {
		return nil
	}
	return &models.Profile{}
}

func newManager(cmd *cobra.Command, opts *cliOptions) (*account.Manager, error) {
	if opts.token == "" {
		return nil, fmt.Errorf("no session token: pass --token or set BOOKKEEPER_SESSION_TOKEN")
	}

	client := account.NewClient(opts.apiURL, opts.token)
	return account.NewManager(client, account.Capabilities{
		Notifier:  &terminalNotifier{cmd: cmd},
		Navigator: &terminalNavigator{cmd: cmd},
		Scheduler: immediateScheduler{},
		Exports:   &fileSink{cmd: cmd},
		Identity:  &tokenSignal{token: opts.token},
	}), nil
}

func newStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the account summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := newManager(cmd, opts)
			if err != nil {
				return err
			}

			mgr.Load(cmd.Context())
			info := mgr.Summary()
			if info == nil {
				return fmt.Errorf("failed to load account information")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Email:                %s\n", info.User.Email)
			if info.User.FirstName != "" || info.User.LastName != "" {
				fmt.Fprintf(out, "Name:                 %s\n", strings.TrimSpace(info.User.FirstName+" "+info.User.LastName))
			}
			fmt.Fprintf(out, "Member since:         %s\n", time.UnixMilli(info.User.CreatedAt).Format("2006-01-02"))
			fmt.Fprintf(out, "Active subscriptions: %d\n", info.ActiveSubscriptions)
			return nil
		},
	}
}

func newCancelCmd(opts *cliOptions) *cobra.Command {
	var (
		subscriptionID string
		at             string
	)

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a subscription",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode := models.CancelMode(at)
			if !mode.Valid() {
				return fmt.Errorf("invalid --at %q: must be %q or %q", at, models.CancelImmediately, models.CancelAtPeriodEnd)
			}

			mgr, err := newManager(cmd, opts)
			if err != nil {
				return err
			}

			mgr.SetSubscription(&models.Subscription{ID: subscriptionID})
			mgr.Cancel(cmd.Context(), mode)

			if sub := mgr.Subscription(); sub != nil && sub.ID == subscriptionID {
				if sub.CancelAtPeriodEnd {
					fmt.Fprintf(cmd.OutOrStdout(), "Access continues until %s\n", time.Unix(sub.CurrentPeriodEnd, 0).Format("2006-01-02"))
				} else if sub.Status == models.SubscriptionCanceled {
					fmt.Fprintln(cmd.OutOrStdout(), "Subscription canceled")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subscriptionID, "subscription", "", "Subscription ID to cancel")
	cmd.Flags().StringVar(&at, "at", string(models.CancelImmediately), "Cancellation mode: immediately or period_end")
	_ = cmd.MarkFlagRequired("subscription")

	return cmd
}

func newDeleteCmd(opts *cliOptions) *cobra.Command {
	var export bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Permanently delete your account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, err := newManager(cmd, opts)
			if err != nil {
				return err
			}

			mgr.Load(cmd.Context())
			out := cmd.OutOrStdout()

			if info := mgr.Summary(); info != nil {
				fmt.Fprintln(out, "Deleting your account removes:")
				for _, dt := range info.DeletionInfo.DataTypes {
					fmt.Fprintf(out, "  - %s\n", dt)
				}
				fmt.Fprintln(out, "What happens:")
				for _, step := range info.DeletionInfo.Process {
					fmt.Fprintf(out, "  - %s\n", step)
				}
			}

			mgr.BeginDeletion()
			mgr.SetExportRequested(export)

			fmt.Fprintf(out, "Type %q to confirm: ", account.ConfirmationPhrase)
			reader := bufio.NewReader(cmd.InOrStdin())
			line, err := reader.ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("aborted")
			}
			typed := strings.TrimRight(line, "\r\n")

			mgr.SetConfirmationText(typed)
			if !mgr.CanSubmit() {
				mgr.AbortDeletion()
				return fmt.Errorf("confirmation text did not match; nothing was deleted")
			}

			mgr.SubmitDeletion(cmd.Context())
			if mgr.State() != account.StateSucceeded {
				return fmt.Errorf("account deletion failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&export, "export", false, "Download a copy of your data before deletion")

	return cmd
}
