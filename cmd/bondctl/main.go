package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"multinic-bond/internal/client"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	debug      bool
	jsonOutput bool
	addr       string
	timeout    time.Duration
)

var log = logrus.New()

func main() {
	root := &cobra.Command{
		Use:           "bondctl",
		Short:         "Control the multi-NIC bonding agent",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				log.SetLevel(logrus.DebugLevel)
			}
			if isatty.IsTerminal(os.Stderr.Fd()) {
				log.SetFormatter(&logrus.TextFormatter{})
			}
		},
	}

	defaultAddr := os.Getenv("BONDCTL_ADDR")
	if defaultAddr == "" {
		defaultAddr = "http://127.0.0.1:8080"
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print raw JSON")
	root.PersistentFlags().StringVar(&addr, "addr", defaultAddr, "agent address (env BONDCTL_ADDR)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "request timeout")

	root.AddCommand(
		interfacesCmd(),
		countersCmd(),
		stateCmd(),
		applyCmd(),
		stopCmd(),
		speedsCmd(),
		watchCmd(),
		historyCmd(),
		journalCmd(),
	)

	ctx := signalContext(context.Background())
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient() *client.HTTPClient {
	return client.NewHTTPClient(addr, timeout, log)
}

func signalContext(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1) // 두 번째 시그널은 즉시 종료
	}()

	return ctx
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}
