package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/engine"
)

func newCheckCmd() *cobra.Command {
	var contextFile string
	var tz string
	var regexIgnoreCase bool
	cmd := &cobra.Command{
		Use:   "check <rule-or-file>",
		Short: "Compile a rule and report syntax and (optionally) type errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := loadRuleSource(args[0])
			if err != nil {
				return err
			}
			var ctx *engine.Context
			if contextFile != "" || tz != "" || regexIgnoreCase {
				ctx, err = loadContextFile(contextFile, tz, regexIgnoreCase)
				if err != nil {
					return err
				}
			}
			var rule *engine.Rule
			if ctx != nil {
				rule, err = engine.Compile(source, ctx)
			} else {
				rule, err = engine.Compile(source)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok: rule compiles")
			if ctx != nil {
				if rule.IsValid(ctx) {
					fmt.Fprintln(cmd.OutOrStdout(), "ok: rule is valid against context")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "warning: rule references a symbol the context can't resolve")
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&contextFile, "context", "", "JSON file of context values to type-check against")
	cmd.Flags().StringVar(&tz, "tz", "", "default IANA timezone for naive datetimes")
	cmd.Flags().BoolVar(&regexIgnoreCase, "regex-ignore-case", false, "make fuzzy comparisons (=~, !~, ...) case-insensitive")
	return cmd
}
