package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"modelshim/internal/config"
	"modelshim/internal/ports"
)

func newPortCmd(o *rootOptions) *cobra.Command {
	portCmd := &cobra.Command{Use: "port", Short: "Port helpers for the safe port range", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("port requires a subcommand: next|free")
	}}

	var rangeStr, after, host string
	defRange := os.Getenv(config.EnvSafePortRange)

	next := &cobra.Command{
		Use:     "next",
		Short:   "Print the next port of the range after --after (or the first)",
		Example: "  modelshim port next --range 9000-9999 --after 9005",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ports.NextSafePortString(rangeStr, after)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}
	next.Flags().StringVar(&rangeStr, "range", defRange, "Port range FIRST-LAST (defaults "+config.EnvSafePortRange+")")
	next.Flags().StringVar(&after, "after", "", "Previously handed out port")

	free := &cobra.Command{
		Use:   "free",
		Short: "Print the first port of the range that can be bound",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ports.ParseRange(rangeStr)
			if err != nil {
				return err
			}
			p, err := ports.FirstFree(host, r)
			if err != nil {
				return err
			}
			o.log.Debug().Int("port", p).Str("range", r.String()).Msg("free port")
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}
	free.Flags().StringVar(&rangeStr, "range", defRange, "Port range FIRST-LAST (defaults "+config.EnvSafePortRange+")")
	free.Flags().StringVar(&host, "host", "127.0.0.1", "Host to probe")

	portCmd.AddCommand(next, free)
	return portCmd
}
