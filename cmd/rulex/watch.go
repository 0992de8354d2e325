package main

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/zeroSteiner/rule-engine-sub000/pkgs/engine"
	"github.com/zeroSteiner/rule-engine-sub000/pkgs/types"
)

// newWatchCmd re-checks a rule file on every save, for iterating on a
// rule against a fixed context without re-invoking the CLI by hand.
func newWatchCmd() *cobra.Command {
	var contextFile string
	var tz string
	var regexIgnoreCase bool
	cmd := &cobra.Command{
		Use:   "watch <rule-file>",
		Short: "Recompile and evaluate a rule file on every save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()
			if err := watcher.Add(path); err != nil {
				return err
			}

			runOnce := func() {
				source, err := loadRuleSource(path)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "read error:", err)
					return
				}
				ctx, err := loadContextFile(contextFile, tz, regexIgnoreCase)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "context error:", err)
					return
				}
				rule, err := engine.Compile(source, ctx)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "compile error:", err)
					return
				}
				v, err := rule.Evaluate(ctx)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "evaluation error:", err)
					return
				}
				fmt.Fprintln(cmd.OutOrStdout(), types.Repr(v))
			}

			runOnce()
			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						runOnce()
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintln(cmd.ErrOrStderr(), "watch error:", err)
				}
			}
		},
	}
	cmd.Flags().StringVar(&contextFile, "context", "", "JSON file of context values")
	cmd.Flags().StringVar(&tz, "tz", "", "default IANA timezone for naive datetimes")
	cmd.Flags().BoolVar(&regexIgnoreCase, "regex-ignore-case", false, "make fuzzy comparisons (=~, !~, ...) case-insensitive")
	return cmd
}
