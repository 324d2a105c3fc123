package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/spf13/cobra"

	"github.com/msuhanov/winmem-decompress/pkg/api"
	"github.com/msuhanov/winmem-decompress/pkg/carve"
	"github.com/msuhanov/winmem-decompress/pkg/catalog"
	"github.com/msuhanov/winmem-decompress/pkg/config"
)

// Version is the program version.
const Version = "20260824"

// rootCmd represents the base command: scan one input file.
var rootCmd = &cobra.Command{
	Use:   "winmem <input file>",
	Short: "Extract compressed memory pages from page-aligned data",
	Long: `winmem scans a raw memory image (or any unstructured byte stream) for
Windows-style compressed memory pages, decompresses every candidate chunk it
finds and writes each recovered page as exactly 4096 bytes to the output.

The scan is heuristic: pages within one read buffer are emitted in decode
completion order, not offset order, and compressed chunks that straddle a
131072-byte read boundary are not recovered. Use --catalog to record the
source offset of every emitted page.

Example:
  winmem memory.dmp > pages.bin
  winmem --workers 8 --lz4 -o pages.bin.lz4 memory.dmp`,
	Args: cobra.ExactArgs(1),
	RunE: runCarve,
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringP("output", "o", "-", "Output file for recovered pages (- for stdout)")
	rootCmd.Flags().IntP("workers", "w", 0, "Decode worker count")
	rootCmd.Flags().Int("batch-size", 0, "Windows submitted to the decode pool per batch")
	rootCmd.Flags().Int("dedupe", 0, "LRU dedupe cache size in windows (0 disables)")
	rootCmd.Flags().String("listen", "", "Serve /metrics, /healthz and /stats on this address")
	rootCmd.Flags().String("catalog", "", "Directory for the page provenance catalog")
	rootCmd.Flags().Bool("lz4", false, "Compress the output stream as an LZ4 frame")
	rootCmd.Flags().String("config", "", "Path to a YAML config file")
}

func runCarve(cmd *cobra.Command, args []string) error {
	// A missing argument should print usage; errors past this point (the
	// input file not existing, I/O failures) should not.
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	inputPath := args[0]
	info, err := os.Stat(inputPath)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("file doesn't exist: %s", inputPath)
	}

	input, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	var out io.Writer = cmd.OutOrStdout()
	if cfg.Output != "" && cfg.Output != "-" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	var lzw *lz4.Writer
	if cfg.LZ4 {
		lzw = lz4.NewWriter(out)
		out = lzw
	}

	metrics := carve.NewMetrics()
	opts := carve.Options{
		Workers:     cfg.Workers,
		BatchSize:   cfg.BatchSize,
		DedupeCache: cfg.DedupeCache,
		Metrics:     metrics,
	}

	if cfg.Catalog != "" {
		cat, err := catalog.Open(cfg.Catalog)
		if err != nil {
			return err
		}
		defer cat.Close()
		opts.Catalog = cat
		fmt.Fprintf(cmd.ErrOrStderr(), "Catalog run: %s\n", cat.Run())
	}

	carver, err := carve.New(opts)
	if err != nil {
		return err
	}
	defer carver.Close()

	if cfg.Listen != "" {
		api.Serve(cfg.Listen, metrics.Registry, carver.Snapshot)
	}

	start := time.Now()
	stats, err := carver.Run(input, out)
	if err != nil {
		return err
	}
	if lzw != nil {
		if err := lzw.Close(); err != nil {
			return fmt.Errorf("flush lz4 output: %w", err)
		}
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Processing done in %d seconds, %d pages recovered.\n",
		int(time.Since(start).Seconds()), stats.PagesEmitted)
	return nil
}

// loadConfig merges the optional config file with the command-line flags;
// flags that were set explicitly win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("output") {
		cfg.Output, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	}
	if cmd.Flags().Changed("dedupe") {
		cfg.DedupeCache, _ = cmd.Flags().GetInt("dedupe")
	}
	if cmd.Flags().Changed("listen") {
		cfg.Listen, _ = cmd.Flags().GetString("listen")
	}
	if cmd.Flags().Changed("catalog") {
		cfg.Catalog, _ = cmd.Flags().GetString("catalog")
	}
	if cmd.Flags().Changed("lz4") {
		cfg.LZ4, _ = cmd.Flags().GetBool("lz4")
	}
	return cfg, nil
}
