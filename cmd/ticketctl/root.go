package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/app"
	"github.com/deskline/ticket-sync/internal/config"
	"github.com/deskline/ticket-sync/internal/observability"
)

// cli carries what every subcommand needs once the root's pre-run has built it.
type cli struct {
	loadConfig func() (*config.Config, error)

	apiURL   string
	token    string
	username string
	password string
	timeout  time.Duration
	logLevel string
	output   string

	app    *app.Context
	logger *zap.Logger
}

func newRootCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	c := &cli{loadConfig: loadConfig}

	root := &cobra.Command{
		Use:           "ticketctl",
		Short:         "Work with tickets on a Ticket Service from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			c.teardown()
		},
	}
	root.CompletionOptions.HiddenDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&c.apiURL, "api-url", "", "Ticket Service base URL (default $TICKET_API_URL)")
	flags.StringVar(&c.token, "token", "", "access token (default $TICKET_API_TOKEN)")
	flags.StringVarP(&c.username, "username", "u", "", "login name used when no token is set (default $TICKET_API_USERNAME)")
	flags.StringVarP(&c.password, "password", "p", "", "password for --username (default $TICKET_API_PASSWORD)")
	flags.DurationVar(&c.timeout, "timeout", 0, "per-request timeout (default $TICKET_API_TIMEOUT)")
	flags.StringVar(&c.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.StringVarP(&c.output, "output", "o", "table", "output format: table or json")

	root.AddCommand(
		newLoginCmd(c),
		newListCmd(c),
		newStatsCmd(c),
		newShowCmd(c),
		newCreateCmd(c),
		newUpdateCmd(c),
		newCommentCmd(c),
		newCloseCmd(c),
		newResolveCmd(c),
		newReopenCmd(c),
		newAssignCmd(c),
		newDeleteCmd(c),
		newBulkCmd(c),
		newBoardCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.output != "table" && c.output != "json" {
		return fmt.Errorf("unknown output format %q", c.output)
	}
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(c.apiURL, "/")
	}
	if c.token != "" {
		cfg.API.AccessToken = c.token
	}
	if c.username != "" {
		cfg.API.Username = c.username
		cfg.API.AccessToken = ""
	}
	if c.password != "" {
		cfg.API.Password = c.password
	}
	if c.timeout > 0 {
		cfg.API.RequestTimeout = c.timeout
	}
	// Keep stdout for command output.
	cfg.Logger.Level = c.logLevel
	cfg.Logger.Output = "stderr"

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.logger = logger
	c.app = app.New(cfg, logger)
	return nil
}

func (c *cli) teardown() {
	if c.app != nil {
		c.app.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// signIn is called by every command that talks to the service on behalf of a user.
func (c *cli) signIn(ctx context.Context) error {
	if err := c.app.SignIn(ctx); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ticket id %q", raw)
	}
	return id, nil
}

func parseIDs(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			id, err := parseID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
