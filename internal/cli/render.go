package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"modelshim/internal/render"
)

// parseSet turns repeated K=V flags into a value map. Later keys win.
func parseSet(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --set %q, want NAME=VALUE", p)
		}
		values[strings.TrimSpace(k)] = v
	}
	return values, nil
}

func newRenderCmd(o *rootOptions) *cobra.Command {
	var tmpl, out string
	var sets []string
	cmd := &cobra.Command{
		Use:     "render",
		Short:   "Fill %NAME% placeholders of a template and write the result",
		Example: "  modelshim render --template nginx.conf.template --out nginx.conf --set NGINX_HTTP_PORT=8080",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSet(sets)
			if err != nil {
				return err
			}
			return render.New(o.log).Render(tmpl, out, values)
		},
	}
	cmd.Flags().StringVar(&tmpl, "template", "", "Template path")
	cmd.Flags().StringVar(&out, "out", "", "Output path")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Placeholder value NAME=VALUE (repeatable)")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
