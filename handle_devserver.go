package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/ziyixi/tasksync/database"
	"github.com/ziyixi/tasksync/server"
)

type devServerConfig struct {
	Port         int
	DataBasePath string
	RequireAuth  bool
}

func newDevServerCmd() *cobra.Command {
	var config devServerConfig
	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run a local task endpoint backed by SQLite",
		Long: "Run a local task endpoint on " + server.Path + " with seeded categories and the account " +
			server.DemoEmail + " / " + server.DemoPassword + ".",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); !debug {
				gin.SetMode(gin.ReleaseMode)
			}
			app, err := setupDevServer(cmd, config)
			if err != nil {
				return err
			}
			listenAddr := fmt.Sprintf(":%d", config.Port)
			log.Infof("Git commit: %s", GitCommit)
			log.Infof("Gin has started in %s mode on %s%s", gin.Mode(), listenAddr, server.Path)
			return app.Run(listenAddr)
		},
	}
	cmd.Flags().IntVar(&config.Port, "port", 8080, "Port to run the server on")
	cmd.Flags().StringVar(&config.DataBasePath, "database-path", "file::memory:?cache=shared", "Path to the SQLite database file")
	cmd.Flags().BoolVar(&config.RequireAuth, "require-auth", false, "Reject requests without a login session")
	return cmd
}

func setupDevServer(cmd *cobra.Command, config devServerConfig) (*gin.Engine, error) {
	store, err := database.Open(config.DataBasePath)
	if err != nil {
		return nil, err
	}
	if err := server.Seed(cmd.Context(), store); err != nil {
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	var opts []server.Option
	if config.RequireAuth {
		opts = append(opts, server.RequireAuth())
	}
	return server.New(store, opts...).Router(), nil
}
