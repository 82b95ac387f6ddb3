package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
	"github.com/nerrad567/gray-logic-lwm2m/internal/objects"
)

func newObjectsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "objects",
		Short: "Print the object tree this client would register",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			reg, err := objects.Build(cmd.Context(), objects.Options{Config: cfg})
			if err != nil {
				return fmt.Errorf("building object registry: %w", err)
			}
			return printTree(cmd.OutOrStdout(), reg.Client)
		},
	}
}

// printTree writes one line per resource, grouped by object.
func printTree(out io.Writer, client *lwm2m.Client) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, o := range client.Objects() {
		name := o.Name()
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "/%d\t%s\t\t\t\n", o.ID(), name)
		for _, in := range o.Instances() {
			for _, r := range in.Resources() {
				value := ""
				if r.Variant().CanRead() {
					value = r.Value().String()
				}
				fmt.Fprintf(w, "  /%d/%d/%d\t%s\t%s\t%s\t%s\n",
					o.ID(), in.ID(), r.ID(), r.Name(), r.Variant().Operations(), r.Kind(), value)
			}
		}
	}
	return w.Flush()
}
