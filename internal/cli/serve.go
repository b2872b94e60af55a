package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"modelshim/internal/supervisor"
)

func (o *rootOptions) supervisor() (*supervisor.Supervisor, error) {
	cfg, env, err := o.load()
	if err != nil {
		return nil, err
	}
	return supervisor.New(cfg, env,
		supervisor.WithLogger(o.log),
		supervisor.WithPublisher(supervisor.LogPublisher{Log: o.log}),
		supervisor.WithSignals(unix.SIGTERM, unix.SIGINT),
	), nil
}

// exitResult turns the exit that ended a session into the command result.
func exitResult(ex supervisor.Exit) error {
	if code := ex.StatusCode(); code != 0 {
		return &ExitError{Code: code, Msg: fmt.Sprintf("session ended: %s", ex)}
	}
	return nil
}

// addMetricsFlag registers --metrics-addr on a supervising command.
func addMetricsFlag(cmd *cobra.Command, addr *string) {
	cmd.Flags().StringVar(addr, "metrics-addr", "", "Serve supervisor metrics on this address at /metrics for the session (empty disables)")
}

func newServeCmd(o *rootOptions) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:     "serve <entry-point>",
		Short:   "Start the proxy and app server for an entry point and wait for them",
		Example: "  modelshim serve inference.wsgi:app",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.supervisor()
			if err != nil {
				return err
			}
			stop, err := startMetrics(cmd.Context(), metricsAddr, o.log)
			if err != nil {
				return err
			}
			defer stop()
			ex, err := s.StartServingStack(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return exitResult(ex)
		},
	}
	addMetricsFlag(cmd, &metricsAddr)
	return cmd
}

func newServeMMSCmd(o *rootOptions) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve-mms",
		Short: "Archive the model, start the model server and wait for it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.supervisor()
			if err != nil {
				return err
			}
			stop, err := startMetrics(cmd.Context(), metricsAddr, o.log)
			if err != nil {
				return err
			}
			defer stop()
			ex, err := s.StartModelServerStack(cmd.Context())
			if err != nil {
				return err
			}
			return exitResult(ex)
		},
	}
	addMetricsFlag(cmd, &metricsAddr)
	return cmd
}
