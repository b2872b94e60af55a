// Package cli wires the modelshim commands to the supervisor, renderer,
// port helpers and the bridge host.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelshim/internal/config"
)

// rootOptions carries persistent flags and what is derived from them.
type rootOptions struct {
	configPath string
	logLevel   string
	stdout     io.Writer
	stderr     io.Writer
	log        zerolog.Logger
}

// load reads the config file (if any) and the serving environment.
func (o *rootOptions) load() (config.Config, config.ServingEnv, error) {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return config.Config{}, config.ServingEnv{}, err
	}
	env, err := config.LoadServingEnv()
	if err != nil {
		return config.Config{}, config.ServingEnv{}, err
	}
	return cfg, env, nil
}

// ExitError carries a non-zero exit status out of a command.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

func buildRootCmd(o *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "modelshim",
		Short:         "Start and supervise model serving stacks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(o.stdout)
	root.SetErr(o.stderr)

	root.PersistentFlags().StringVar(&o.configPath, "config", os.Getenv("MODELSHIM_CONFIG"), "Config file (.yaml, .json or .toml); defaults MODELSHIM_CONFIG")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", config.LogLevel(), "Log level: debug|info|warn|error (defaults MODELSHIM_LOG_LEVEL or info)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(o.logLevel, o.stderr)
		if err != nil {
			return err
		}
		o.log = l
		return nil
	}

	root.AddCommand(
		newServeCmd(o),
		newServeMMSCmd(o),
		newRenderCmd(o),
		newPortCmd(o),
		newHandlerCmd(o),
		newCompletionCmd(root),
	)
	return root
}

func newCompletionCmd(root *cobra.Command) *cobra.Command {
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error {
		return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
	}})
	return completionCmd
}

// Run executes args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o := &rootOptions{stdout: stdout, stderr: stderr, log: zerolog.Nop()}
	root := buildRootCmd(o)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var ee *ExitError
		if errors.As(err, &ee) {
			o.log.Error().Int("code", ee.Code).Msg(ee.Msg)
			return ee.Code
		}
		fmt.Fprintln(stderr, err.Error())
		return 1
	}
	return 0
}

// Main runs the command line of the current process.
func Main() int { return Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr) }
