/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/naukovi-znahidky/client/config"
	"github.com/naukovi-znahidky/client/internal/apiclient"
	"github.com/naukovi-znahidky/client/internal/db"
	"github.com/naukovi-znahidky/client/internal/services"
	"github.com/naukovi-znahidky/client/internal/session"
	"github.com/naukovi-znahidky/client/internal/tokens"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliSessionID names the Redis token hash shared by CLI invocations.
const cliSessionID = "cli"

var jsonOutput bool

// cli is what a command needs to talk to the API as the stored user.
type cli struct {
	svc     *services.Services
	session *session.Store
	out     io.Writer
	logger  *zap.Logger
	redis   *redis.Client
}

// openCLI builds the client over the configured token store and restores
// the stored session.
func openCLI(cmd *cobra.Command) (*cli, error) {
	cfg := loadConfig()
	if logLevel == "" && os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	c := &cli{out: cmd.OutOrStdout(), logger: logger}
	store, err := c.tokenStore(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}

	var sess *session.Store
	api := apiclient.New(cfg.API.BaseURL, store,
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithLogger(logger.Named("api")),
		apiclient.OnSessionExpired(func() {
			if sess != nil {
				sess.Expire()
			}
		}),
	)
	c.svc = services.New(api)
	sess = session.New(c.svc.Auth, store, session.WithLogger(logger.Named("session")))
	sess.Initialize(cmd.Context())
	c.session = sess
	return c, nil
}

func (c *cli) tokenStore(ctx context.Context, cfg config.Config) (tokens.Store, error) {
	switch cfg.Tokens.Store {
	case config.TokenStoreRedis:
		rdb, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		c.redis = rdb
		return tokens.NewRedisStore(rdb, "", cliSessionID, cfg.Session.MaxAge), nil
	case config.TokenStoreFile, "":
		return tokens.NewFileStore(cfg.Tokens.File), nil
	default:
		return nil, fmt.Errorf("unknown TOKEN_STORE %q", cfg.Tokens.Store)
	}
}

func (c *cli) Close() {
	if c.redis != nil {
		_ = c.redis.Close()
	}
	_ = c.logger.Sync()
}

// withCLI adapts a command body that needs a cli.
func withCLI(run func(cmd *cobra.Command, c *cli, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := openCLI(cmd)
		if err != nil {
			return err
		}
		defer c.Close()
		return run(cmd, c, args)
	}
}

// requireUser fails unless a user is signed in.
func (c *cli) requireUser() error {
	if !c.session.IsAuthenticated() {
		return fmt.Errorf("not signed in, run `znahidky login` first")
	}
	return nil
}

// fail turns an API error into the message a user should see.
func fail(err error, fallback string) error {
	return fmt.Errorf("%s", apiclient.Message(err, fallback))
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes tab-separated rows aligned into columns.
func (c *cli) table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print API replies as JSON")
}
