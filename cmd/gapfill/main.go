// Command gapfill builds draft metabolic models from genome annotations and
// gap-fills them against one or more growth media using reaction likelihoods.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "gapfill: %v\n", err)
		return 1
	}
	return 0
}

type rootFlags struct {
	configPath string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "gapfill",
		Short:         "Likelihood-guided gap-filling of metabolic models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "YAML configuration file")

	root.AddCommand(
		newDraftCmd(flags),
		newSuggestCmd(flags),
		newFillCmd(flags),
		newPredictCmd(flags),
		newRunsCmd(flags),
	)
	return root
}
