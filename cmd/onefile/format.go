package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// parseFormat validates a --format flag value.
func parseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatHuman, "":
		return FormatHuman, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (want human or json)", s)
	}
}

// writeResponse formats resp and writes it followed by a newline.
func writeResponse(out io.Writer, resp interface{}, format OutputFormat) error {
	text, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, text)
	return err
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ScanResponseCLI:
		return formatScanHuman(v), nil
	case *BuildResponseCLI:
		return formatBuildHuman(v), nil
	case *DepsResponseCLI:
		return formatDepsHuman(v), nil
	default:
		return formatJSON(resp)
	}
}

func formatScanHuman(resp *ScanResponseCLI) string {
	return fmt.Sprintf("Scanned %d modules (%d types) from %s\nManifest: %s",
		resp.Modules, resp.Types, resp.LibraryDir, resp.Manifest)
}

func formatBuildHuman(resp *BuildResponseCLI) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dependency graph built with %s strategy\n", resp.Strategy)
	fmt.Fprintf(&b, "  Modules: %d\n", resp.Modules)
	fmt.Fprintf(&b, "  Edges:   %d\n", resp.Edges)
	fmt.Fprintf(&b, "  Time:    %s\n", resp.Duration.Round(time.Millisecond))

	if len(resp.Unresolved) > 0 {
		names := make([]string, 0, len(resp.Unresolved))
		for name := range resp.Unresolved {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("\nIdentifiers without an owning module:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "  %-30s %d\n", name, resp.Unresolved[name])
		}
	}

	if resp.BuildID != "" {
		fmt.Fprintf(&b, "\nStored build %s\n", resp.BuildID)
	}
	if resp.ManifestWritten != "" {
		fmt.Fprintf(&b, "Annotated manifest written to %s\n", resp.ManifestWritten)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDepsHuman(resp *DepsResponseCLI) string {
	var b strings.Builder

	if resp.Query != resp.Module {
		fmt.Fprintf(&b, "%s is declared by %s\n\n", resp.Query, resp.Module)
	}
	fmt.Fprintf(&b, "Module %s\n", resp.Module)
	if resp.Path != "" {
		fmt.Fprintf(&b, "  Path: %s\n", resp.Path)
	}
	writeList(&b, "Types", resp.Types)
	writeList(&b, "Imports", resp.Imports)
	if resp.Built {
		writeList(&b, "Dependencies", resp.Dependencies)
	} else {
		b.WriteString("  Dependencies: not computed (run 'onefile build')\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(b, "  %s: none\n", title)
		return
	}
	fmt.Fprintf(b, "  %s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "    %s\n", item)
	}
}
