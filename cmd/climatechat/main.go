package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	climatechat "github.com/verdantiq/climatechat"
	"github.com/verdantiq/climatechat/common/logger"
	"github.com/verdantiq/climatechat/config"
)

var (
	cfgPath string
	pretty  bool
)

func main() {
	root := &cobra.Command{
		Use:   "climatechat",
		Short: "Multilingual climate-education chat backend",
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config YAML")
	root.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable log output")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE:  runServe,
	}
	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if pretty {
		logger.Pretty()
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := climatechat.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	srv := climatechat.NewServer(client)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
