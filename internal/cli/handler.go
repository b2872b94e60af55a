package cli

import (
	"fmt"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"modelshim/internal/bridge"
	"modelshim/internal/bridge/httphost"
	"modelshim/internal/config"
)

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newHandlerCmd(o *rootOptions) *cobra.Command {
	var addr, corsOrigins string
	var swagger bool
	var maxBody int64
	cmd := &cobra.Command{
		Use:   "handler",
		Short: "Serve the user transform over HTTP (/ping, /invocations, /metrics)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := config.LoadServingEnv()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = fmt.Sprintf(":%d", env.HTTPPort)
			}
			origins := splitCSV(corsOrigins)
			mux := httphost.NewMux(httphost.BridgeFactory(bridge.Options{Env: env, Log: o.log}), httphost.Options{
				MaxBodyBytes: maxBody,
				Swagger:      swagger,
				Log:          o.log,
				CORS: httphost.CORSOptions{
					Enabled:        len(origins) > 0,
					AllowedOrigins: origins,
					AllowedMethods: []string{"GET", "POST", "OPTIONS"},
					AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
				},
			})
			ctx, stop := signal.NotifyContext(cmd.Context(), unix.SIGINT, unix.SIGTERM)
			defer stop()
			return httphost.Serve(ctx, addr, mux, o.log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to :$"+config.EnvHTTPPort+")")
	cmd.Flags().StringVar(&corsOrigins, "cors-origins", "", "Comma separated allowed CORS origins (empty disables CORS)")
	cmd.Flags().BoolVar(&swagger, "swagger", false, "Serve API docs under /swagger/")
	cmd.Flags().Int64Var(&maxBody, "max-body-bytes", httphost.DefaultMaxBodyBytes, "Maximum invocation body size")
	return cmd
}
