package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"onefile/internal/project"
	"onefile/internal/registry"
	"onefile/internal/syntax"
)

var (
	scanOutput string
	scanLang   string
	scanMinify bool
	scanFormat string
)

var scanCmd = &cobra.Command{
	Use:   "scan <library-dir>",
	Short: "Build a registry manifest from library sources",
	Long: `Walks a directory of library sources, records the types each file declares
and the imports it needs, and writes a manifest. Hidden directories, vendor,
testdata and test files are skipped. Requires a cgo-enabled build.

The manifest format follows the output extension: .toml, .yaml/.yml or .json.

Examples:
  onefile scan ./acl
  onefile scan ./acl -o library.yaml --lang go
  onefile scan ./lib --lang auto
  onefile scan ./Source --lang csharp --minify`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "manifest path (default: library.manifest)")
	scanCmd.Flags().StringVar(&scanLang, "lang", "", "library language, or auto to detect it (default: library.language)")
	scanCmd.Flags().BoolVar(&scanMinify, "minify", false, "strip indentation and blank lines from bodies")
	scanCmd.Flags().StringVar(&scanFormat, "format", "human", "output format (human, json)")
	rootCmd.AddCommand(scanCmd)
}

// ScanResponseCLI summarizes a scan.
type ScanResponseCLI struct {
	LibraryDir string `json:"libraryDir"`
	Language   string `json:"language"`
	Manifest   string `json:"manifest"`
	Modules    int    `json:"modules"`
	Types      int    `json:"types"`
}

type scanOptions struct {
	Dir      string
	Output   string
	Language string
	Minify   bool
}

func runScan(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(scanFormat)
	if err != nil {
		return err
	}
	minify := env.cfg.Scan.Minify
	if cmd.Flags().Changed("minify") {
		minify = scanMinify
	}
	resp, err := scanLibrary(cmd.Context(), env, scanOptions{
		Dir:      args[0],
		Output:   scanOutput,
		Language: scanLang,
		Minify:   minify,
	})
	if err != nil {
		return err
	}
	return writeResponse(cmd.OutOrStdout(), resp, format)
}

func scanLibrary(ctx context.Context, e *cliEnv, opts scanOptions) (*ScanResponseCLI, error) {
	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, err
	}
	lang, err := e.scanLanguage(dir, opts.Language)
	if err != nil {
		return nil, err
	}

	scanner := registry.NewScanner(lang, registry.ScanOptions{
		Minify:  opts.Minify,
		Exclude: e.cfg.Scan.Exclude,
		Logger:  e.logger,
	})
	modules, err := scanner.ScanDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(lang, modules)
	if err != nil {
		return nil, err
	}

	output := e.manifestPath("")
	if opts.Output != "" {
		if output, err = filepath.Abs(opts.Output); err != nil {
			return nil, err
		}
	}
	if err := registry.SaveManifest(output, registry.ManifestFor(reg)); err != nil {
		return nil, err
	}

	e.logger.Info("Wrote manifest", "path", output, "modules", reg.Len())
	return &ScanResponseCLI{
		LibraryDir: dir,
		Language:   string(lang),
		Manifest:   output,
		Modules:    reg.Len(),
		Types:      len(reg.TypeNames()),
	}, nil
}

// scanLanguage resolves the --lang flag. "auto" detects the language from the
// library directory; an empty flag falls back to library.language.
func (e *cliEnv) scanLanguage(dir, flag string) (syntax.Language, error) {
	switch strings.ToLower(flag) {
	case "":
		return e.language()
	case "auto":
		d, ok := project.DetectLanguage(dir)
		if !ok {
			return "", fmt.Errorf("could not detect the language of %s; pass --lang", dir)
		}
		e.logger.Info("Detected library language", "language", string(d.Language), "marker", d.Marker)
		return d.Language, nil
	default:
		return syntax.ParseLanguage(flag)
	}
}
