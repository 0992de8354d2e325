package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/engine"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

func newEvalCmd() *cobra.Command {
	var contextFile string
	var asBool bool
	var tz string
	var regexIgnoreCase bool
	cmd := &cobra.Command{
		Use:   "eval <rule-or-file>",
		Short: "Compile and evaluate a rule against a JSON context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := loadRuleSource(args[0])
			if err != nil {
				return err
			}
			ctx, err := loadContextFile(contextFile, tz, regexIgnoreCase)
			if err != nil {
				return err
			}
			rule, err := engine.Compile(source, ctx)
			if err != nil {
				return err
			}
			if asBool {
				ok, err := rule.Matches(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			}
			v, err := rule.Evaluate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), types.Repr(v))
			return nil
		},
	}
	cmd.Flags().StringVar(&contextFile, "context", "", "JSON file of context values")
	cmd.Flags().BoolVar(&asBool, "bool", false, "coerce the result to boolean via Matches")
	cmd.Flags().StringVar(&tz, "tz", "", "default IANA timezone for naive datetimes")
	cmd.Flags().BoolVar(&regexIgnoreCase, "regex-ignore-case", false, "make fuzzy comparisons (=~, !~, ...) case-insensitive")
	return cmd
}
