// Package main provides the xpsexport command: it renders report documents
// described in YAML into XPS files and lists the parts of existing ones.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/adnsv/go-xps/xps"
	"github.com/npillmayer/schuko/tracing"
	"github.com/spf13/cobra"
)

var (
	outputPath    string
	outputDir     string
	humanReadable bool
	fontsDir      string
	fullFonts     bool
	strictParts   bool
	title         string
	verbose       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "xpsexport",
		Short:        "Export laid out reports as XPS documents",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug messages")

	renderCmd := &cobra.Command{
		Use:   "render [report.yaml]",
		Short: "Render a report document into an XPS file",
		Long: `render reads pages, bands and objects from a YAML (or JSON) report
document and writes them as an XPS fixed document.`,
		Args: cobra.ExactArgs(1),
		RunE: runRender,
	}
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: input name with .xps)")
	renderCmd.Flags().StringVar(&outputDir, "dir", "", "Write the package parts into a directory instead")
	renderCmd.Flags().BoolVar(&humanReadable, "human-readable", false, "Add the source text to every glyph run")
	renderCmd.Flags().StringVar(&fontsDir, "fonts", "", "Directory with TrueType fonts (default: Go fonts)")
	renderCmd.Flags().BoolVar(&fullFonts, "full-fonts", false, "Embed whole fonts instead of subsets")
	renderCmd.Flags().BoolVar(&strictParts, "strict", false, "Fail on duplicate part names")
	renderCmd.Flags().StringVar(&title, "title", "", "Document title (overrides the report's)")

	inspectCmd := &cobra.Command{
		Use:   "inspect [file.xps]",
		Short: "List the parts of an XPS package",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}

	rootCmd.AddCommand(renderCmd, inspectCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// tracer writes to trace with key 'xps.cli'
func tracer() tracing.Trace {
	return tracing.Select("xps.cli")
}

// traceKeys lists the traces of the command and of the export engine.
var traceKeys = []string{"xps.cli", "xps.export", "xps.fonts"}

func setTraceLevels() {
	level := tracing.LevelInfo
	if verbose {
		level = tracing.LevelDebug
	}
	for _, key := range traceKeys {
		tracing.Select(key).SetTraceLevel(level)
	}
}

func fontSource() (xps.FontSource, error) {
	if fontsDir == "" {
		return xps.GoFonts, nil
	}
	dir, err := xps.NewDirFontSource(fontsDir)
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	tracer().Debugf("%d fonts loaded from %s", dir.Len(), fontsDir)
	return xps.FallbackFontSource{dir, xps.GoFonts}, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	setTraceLevels()

	doc, err := loadReport(inputPath)
	if err != nil {
		return err
	}
	src, err := fontSource()
	if err != nil {
		return err
	}
	pages, err := doc.build(newLayouter(src), filepath.Dir(inputPath))
	if err != nil {
		return err
	}

	props := doc.properties()
	if title != "" {
		props.Title = title
	}
	e := xps.New(
		xps.WithFontSource(src),
		xps.WithHumanReadable(humanReadable),
		xps.WithFullFontEmbedding(fullFonts),
		xps.WithStrictParts(strictParts),
		xps.WithProperties(props),
	)

	if outputDir != "" {
		return exportDir(e, outputDir, pages)
	}
	out := outputPath
	if out == "" {
		out = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".xps"
	}
	if err := e.SaveFile(out, pages...); err != nil {
		return err
	}
	tracer().Infof("saved %s, %d pages", out, len(pages))
	return nil
}

// exportDir drives a session page by page and stores the parts as files.
func exportDir(e *xps.Exporter, dir string, pages []*xps.Page) error {
	s := e.NewSession()
	for _, p := range pages {
		if err := s.BeginPage(p); err != nil {
			return err
		}
		for _, b := range p.Bands {
			if err := s.ExportBand(b); err != nil {
				return err
			}
		}
		if err := s.EndPage(); err != nil {
			return err
		}
	}
	return s.FinishTo(xps.NewDirStorage(dir))
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return err
	}
	parts, err := listParts(f, st.Size())
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return printParts(cmd.OutOrStdout(), parts)
}

func printParts(w io.Writer, parts []partInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PART\tSIZE\tCONTENT TYPE")
	for _, p := range parts {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Name, p.Size, p.ContentType)
	}
	return tw.Flush()
}
