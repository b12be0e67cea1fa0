package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"onefile/internal/guard"
	"onefile/internal/paths"
	"onefile/internal/watcher"
)

var (
	bundleOutput   string
	bundleForce    bool
	bundleNoHeader bool
	bundleWatch    bool
	bundleStrategy string
	bundleManifest string
)

var bundleCmd = &cobra.Command{
	Use:   "bundle <entry>",
	Short: "Write the bundle for an entry file unless it is up to date",
	Long: `Writes the entry file plus every library module it needs into one output
file. The first line of the output records a token for the entry's state
(modification time or content hash); when the entry is unchanged the
output is left alone.

The output is replaced atomically through a temporary file unless
output.atomic is false. Without -o the output goes to output.path, or to
<entry>.bundle<ext> next to the entry.

Examples:
  onefile bundle main.go
  onefile bundle main.go -o submit/main.go --force
  onefile bundle main.go --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runBundle,
}

func init() {
	bundleCmd.Flags().StringVarP(&bundleOutput, "output", "o", "", "output path")
	bundleCmd.Flags().BoolVar(&bundleForce, "force", false, "rewrite even if the output is up to date")
	bundleCmd.Flags().BoolVar(&bundleNoHeader, "no-header", false, "neither read nor write the freshness header")
	bundleCmd.Flags().BoolVar(&bundleWatch, "watch", false, "rebundle whenever the entry changes")
	bundleCmd.Flags().StringVar(&bundleStrategy, "strategy", "", "extraction strategy: all, name, semantic (default: resolve.strategy)")
	bundleCmd.Flags().StringVar(&bundleManifest, "manifest", "", "read this manifest instead of the stored registry")
	rootCmd.AddCommand(bundleCmd)
}

type bundleOptions struct {
	entryRequest
	Output   string
	Force    bool
	NoHeader bool
}

func runBundle(cmd *cobra.Command, args []string) error {
	opts := bundleOptions{
		entryRequest: entryRequest{
			Entry:    args[0],
			Strategy: bundleStrategy,
			Manifest: bundleManifest,
		},
		Output:   bundleOutput,
		Force:    bundleForce,
		NoHeader: bundleNoHeader,
	}
	if !bundleWatch {
		_, err := bundleEntry(cmd.Context(), env, opts, cmd.OutOrStdout())
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchEntry(ctx, env, opts, cmd.OutOrStdout())
}

// bundleEntry runs one WriteIfStale pass and reports the outcome on out.
func bundleEntry(ctx context.Context, e *cliEnv, opts bundleOptions, out io.Writer) (guard.Outcome, error) {
	p, err := e.prepareEntry(ctx, opts.entryRequest)
	if err != nil {
		return guard.Skipped, err
	}
	output, err := e.outputPath(p.Path, opts.Output)
	if err != nil {
		return guard.Skipped, err
	}

	outcome, err := p.Engine.WriteIfStale(ctx, output, p.Path,
		guard.WithForce(opts.Force),
		guard.WithHeader(e.cfg.Output.Header && !opts.NoHeader),
		guard.WithAtomic(e.cfg.Output.Atomic),
		guard.WithTokenMode(guard.TokenMode(e.cfg.Output.TokenMode)),
	)
	if err != nil {
		return outcome, err
	}

	switch outcome {
	case guard.Written:
		fmt.Fprintf(out, "Wrote %s\n", output)
	default:
		fmt.Fprintf(out, "%s is up to date\n", output)
	}
	return outcome, nil
}

// outputPath picks the artifact path: the flag (relative to the working
// directory), then output.path (relative to the entry's directory), then
// <stem>.bundle<ext> beside the entry. The entry itself is never a target.
func (e *cliEnv) outputPath(entry, flag string) (string, error) {
	var output string
	switch {
	case flag != "":
		abs, err := filepath.Abs(flag)
		if err != nil {
			return "", err
		}
		output = abs
	case e.cfg.Output.Path != "":
		output = paths.ResolveAgainst(filepath.Dir(entry), e.cfg.Output.Path)
	default:
		ext := filepath.Ext(entry)
		output = strings.TrimSuffix(entry, ext) + ".bundle" + ext
	}
	if filepath.Clean(output) == filepath.Clean(entry) {
		return "", fmt.Errorf("output %s would overwrite the entry file", output)
	}
	return output, nil
}

// watchEntry bundles once, then again after every change to the entry until
// ctx is cancelled. Failures while watching are reported and do not stop it.
func watchEntry(ctx context.Context, e *cliEnv, opts bundleOptions, out io.Writer) error {
	if _, err := bundleEntry(ctx, e, opts, out); err != nil {
		return err
	}

	entry, err := filepath.Abs(opts.Entry)
	if err != nil {
		return err
	}
	cfg := watcher.DefaultConfig(entry)
	cfg.Debounce = time.Duration(e.cfg.Watch.DebounceMs) * time.Millisecond
	cfg.Logger = e.logger
	w, err := watcher.New(cfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}
	defer w.Stop()

	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", opts.Entry)
	once := opts
	once.Force = false

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Stopped watching")
			return nil
		case <-changes:
			if _, err := bundleEntry(ctx, e, once, out); err != nil {
				e.logger.Error("Rebundle failed", "entry", opts.Entry, "error", err.Error())
				fmt.Fprintf(out, "Error: %s\n", errorMessage(err))
			}
		}
	}
}
