package main

import (
	"fmt"
	"os"

	"arena-sheets/internal/fuzzing"
	"arena-sheets/internal/telemetry"
	"arena-sheets/lib/serviceutil"
	libtelemetry "arena-sheets/lib/telemetry"

	"github.com/spf13/cobra"
)

var targets = map[string]fuzzing.TargetProvider{
	"sheets": fuzzing.SheetsProvider{},
}

var (
	path     fuzzing.Path
	minSteps int64
	maxSteps int64
)

var rootCmd = &cobra.Command{
	Use:   "arena-fuzz <target>",
	Short: "Explores the state space of a component until one of its invariants breaks.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		libtelemetry.InitSlog(true)
		tel := telemetry.SlogAPI{}

		provider, ok := targets[args[0]]
		if !ok {
			serviceutil.Fatal("unknown fuzz target", fmt.Errorf("%q", args[0]))
		}
		f, err := fuzzing.New(tel, provider, minSteps, maxSteps)
		if err != nil {
			serviceutil.Fatal("create fuzzer", err)
		}

		if path.Steps > 0 {
			results, err := f.Replay(cmd.Context(), tel, path)
			if err != nil {
				serviceutil.Fatal("replay path", err)
			}
			if results.Failed() {
				serviceutil.Fatal("path failed", results.Err())
			}
			tel.ReportDebug("no failures", telemetry.KV{Key: "path", Value: path.String()})
			return
		}

		failed, err := f.Explore(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "replay with: arena-fuzz %s --path %s\n", args[0], failed.String())
			os.Exit(1)
		}
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.VarP(&path, "path", "p", "Replay a single fuzzing path <seed>:<steps>.")
	flags.Int64Var(&minSteps, "min-steps", 10, "The minimum amount of steps executed on a target.")
	flags.Int64Var(&maxSteps, "max-steps", 100, "The maximum amount of steps executed on a target.")
}

func main() {
	if err := rootCmd.ExecuteContext(serviceutil.SignalContext()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
