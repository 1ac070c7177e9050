/*
MIT License

Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package main

import (
	"errors"
	"flag"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/mikelane/driftrelay/internal/config"
	"github.com/mikelane/driftrelay/internal/dispatch"
	"github.com/mikelane/driftrelay/internal/router"
	"github.com/mikelane/driftrelay/internal/tfe"
	"github.com/mikelane/driftrelay/internal/webhook"
)

var setupLog = log.Log.WithName("setup")

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configFile string
		listenAddr string
	)
	opts := zap.Options{
		Development: false,
	}

	cmd := &cobra.Command{
		Use:   "driftrelay",
		Short: "Relay Terraform notifications into remediation runs",
		Long: `driftrelay receives Terraform Cloud / Enterprise notification webhooks and
queues an apply or destroy run for the workspace that reported drift.

Configuration is read from the environment (TFE_TOKEN, TFE_HOSTNAME,
TFE_NOTIFICATION_TOKEN, PORT, ...) and optionally from a YAML file given with
--config. Environment variables take precedence over the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(configFile, listenAddr, &opts)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to an optional YAML configuration file")
	cmd.Flags().StringVar(&listenAddr, "listen-address", "", "Address to bind; empty binds all interfaces")

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	opts.BindFlags(goFlags)
	cmd.Flags().AddGoFlagSet(goFlags)

	return cmd
}

// startupWarnings lists settings an operator should notice in the startup log
func startupWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.AutoApply {
		warnings = append(warnings, "TFE_AUTO_APPLY is enabled, runs created by the relay will apply without confirmation")
	}
	return warnings
}

func run(configFile, listenAddr string, opts *zap.Options) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		// Logging is not configured yet
		log.SetLogger(zap.New(zap.UseFlagOptions(opts)))
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			setupLog.Error(err, "Invalid configuration", "key", cfgErr.Key)
		} else {
			setupLog.Error(err, "Unable to load configuration")
		}
		return err
	}

	if cfg.Verbose {
		opts.Level = zapcore.DebugLevel
	}
	log.SetLogger(zap.New(zap.UseFlagOptions(opts)))
	setupLog.Info("Starting driftrelay", cfg.LogValues()...)
	for _, warning := range startupWarnings(cfg) {
		setupLog.Info(warning)
	}

	client, err := tfe.NewClient(tfe.Options{
		Address:            cfg.BaseURL(),
		Token:              cfg.Token,
		InsecureSkipVerify: cfg.SSLSkipVerify,
		Timeout:            cfg.DispatchTimeout,
	})
	if err != nil {
		setupLog.Error(err, "Unable to create Terraform API client", "address", cfg.BaseURL())
		return err
	}

	dispatcher := dispatch.NewDispatcher(client, cfg)
	server := webhook.NewServer(listenAddr, cfg, dispatcher, router.New(cfg.Policy))

	ctx := log.IntoContext(signals.SetupSignalHandler(), log.Log.WithName("webhook"))
	if err := server.Start(ctx); err != nil {
		setupLog.Error(err, "Webhook server failed")
		return err
	}
	setupLog.Info("Shut down cleanly")
	return nil
}
