package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ziyixi/tasksync/todo"
	"github.com/ziyixi/tasksync/transport"
	"github.com/ziyixi/tasksync/utils"
	"github.com/ziyixi/tasksync/view"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

var GitCommit string // Will be set at build time

// session is what every command that talks to the endpoint works with.
type session struct {
	cfg    *utils.Config
	client *todo.Client
	board  *view.Board
}

// setupSession builds the client stack from the resolved configuration and,
// when credentials were given, logs in first.
func setupSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := utils.LoadConfig(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}

	tr, err := transport.NewClient(cfg.Endpoint,
		transport.WithTimeout(cfg.Timeout),
		transport.WithRetryCount(cfg.RetryCount),
		transport.WithCacheSize(cfg.CacheSize),
		transport.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	client := todo.NewClient(tr, todo.WithLogger(log))
	s := &session{
		cfg:    cfg,
		client: client,
		board:  view.NewBoard(client, view.WithLogger(log)),
	}

	email, _ := cmd.Flags().GetString(flagEmail)
	password, _ := cmd.Flags().GetString(flagPassword)
	if email != "" {
		ok, err := client.Login(ctx, todo.Credentials{Email: email, Password: password})
		if err != nil {
			return nil, userError(err)
		}
		if !ok {
			return nil, errors.New("login was rejected")
		}
		log.Debugf("Logged in as %s", email)
	}
	log.Debugf("Using endpoint %s", cfg.Endpoint)
	return s, nil
}

const (
	flagEmail    = "email"
	flagPassword = "password"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tasksync",
		Short:         "Work with tasks on a task GraphQL endpoint",
		Version:       GitCommit,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String(utils.KeyEndpoint, utils.DefaultEndpoint, "GraphQL endpoint URL (env "+utils.EnvInternalEndpoint+", "+utils.EnvPublicEndpoint+")")
	flags.Duration(utils.KeyTimeout, 10*time.Second, "Request timeout (env "+utils.EnvTimeout+")")
	flags.Int(utils.KeyRetryCount, utils.DefaultRetryCount, "Transport-level retries (env "+utils.EnvRetryCount+")")
	flags.Int(utils.KeyCacheSize, utils.DefaultCacheSize, "Number of cached query results (env "+utils.EnvCacheSize+")")
	flags.Bool(utils.KeyDebug, false, "Enable debug logging (env "+utils.EnvDebug+")")
	flags.String(flagEmail, "", "Log in with this email before running the command")
	flags.String(flagPassword, "", "Password for --email")

	root.AddCommand(
		newListCmd(),
		newAddCmd(),
		newEditCmd(),
		newDoneCmd(),
		newRmCmd(),
		newSubCmd(),
		newCategoriesCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newDevServerCmd(),
	)
	return root
}

// userError turns the error kinds a view would render inline into messages
// fit for a terminal.
func userError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, todo.ErrSkipped):
		return errors.New("nothing sent: required input is missing or invalid")
	case errors.Is(err, view.ErrInFlight):
		return errors.New("the same action is already running")
	}
	return errors.New(view.Message(err))
}

// warnRefetch reports a refetch failure without failing a mutation that
// succeeded.
func warnRefetch(cmd *cobra.Command, err error) error {
	var refetchErr *view.RefetchError
	if errors.As(err, &refetchErr) {
		cmd.PrintErrln("warning: " + view.Message(err))
		return nil
	}
	return userError(err)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}
