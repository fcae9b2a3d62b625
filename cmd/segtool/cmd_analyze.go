package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(g *globals) *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "analyze <text>...",
		Short: "Print the tokens the configured analyzer makes of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			an, err := g.cfg.BuildAnalyzer()
			if err != nil {
				return err
			}
			defer an.Close()

			ts, err := an.TokenStream(field, strings.Join(args, " "))
			if err != nil {
				return err
			}
			defer ts.Close()
			out := cmd.OutOrStdout()
			for {
				tk, err := ts.Next()
				if tk == nil || err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%v\t%v\t%v\n", tk.Text, tk.Start, tk.End, tk.PosInc)
			}
		},
	}
	cmd.Flags().StringVarP(&field, "field", "f", BODY_FIELD, "field the text belongs to")
	return cmd
}
