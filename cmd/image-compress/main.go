package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"image-compress-go/internal/api"
	"image-compress-go/internal/config"
	"image-compress-go/internal/logger"
	"image-compress-go/internal/metadata"
	"image-compress-go/internal/statistics"
	"image-compress-go/internal/web"
	"image-compress-go/internal/workflow"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	verbose      bool
	quiet        bool
	method       string
	quality      int
	targetSizeKB int
	noAnalysis   bool
	outputDir    string
	noDownload   bool
	port         int
	version      string
	buildTime    string
)

// rootCmd runs the full workflow for a single image: select, compress,
// download.
var rootCmd = &cobra.Command{
	Use:   "image-compress <file>",
	Short: "Compress an image through the remote compression service",
	Long: `image-compress drives a remote image-compression service from the
command line. It submits the selected image together with the configured
parameters, reports the compression outcome, and downloads the compressed
artifact.

Features:
- Traditional, ML and hybrid compression methods
- Optional best-effort image analysis (entropy, complexity, recommendation)
- Optional target size in kilobytes
- Artifact download into a configurable directory
- Comprehensive logging and session statistics`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(args[0])
	},
}

// analyzeCmd requests only the quality/complexity assessment of an image.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Request an image analysis without compressing",
	Long: `Submits the image to the analysis service and prints the assessment
(entropy, intensity statistics, complexity and a compression recommendation).
Analysis is best-effort; when the service is unreachable the command reports
the assessment as unavailable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(args[0])
	},
}

// serveCmd starts the local web surface.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web interface server",
	Long: `Starts a local HTTP server that drives the compression workflow:
upload a file, edit options, trigger compression and download the artifact.
State changes are pushed to connected websocket clients.

The API is served at http://localhost:<port> (default: 8080)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// versionCmd prints build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version == "" {
			version = "dev"
		}
		fmt.Printf("image-compress %s", version)
		if buildTime != "" {
			fmt.Printf(" (built %s)", buildTime)
		}
		fmt.Println()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	rootCmd.Flags().StringVar(&method, "method", "", "compression method: traditional, ml or hybrid")
	rootCmd.Flags().IntVar(&quality, "quality", 0, "quality level (10-100)")
	rootCmd.Flags().IntVar(&targetSizeKB, "target-size-kb", 0, "target size in kilobytes (0 disables)")
	rootCmd.Flags().BoolVar(&noAnalysis, "no-analysis", false, "disable post-compression quality metrics")
	rootCmd.Flags().StringVar(&outputDir, "output", "", "directory for the downloaded artifact")
	rootCmd.Flags().BoolVar(&noDownload, "no-download", false, "skip downloading the compressed artifact")

	serveCmd.Flags().IntVar(&port, "port", 8080, "port to run web server on")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig loads configuration file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.image-compress")
		viper.AddConfigPath("/etc/image-compress")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// buildWorkflow assembles the controller and its collaborators from config.
func buildWorkflow(cfg *config.Config, log *logrus.Logger) (*workflow.Controller, *metadata.ImageInspector, *statistics.Statistics) {
	client := api.NewClient(cfg.Services.AnalysisURL, cfg.Services.CompressionURL, cfg.Timeout(), log)
	inspector := metadata.NewImageInspector(log)
	sink := workflow.NewFileSink(cfg.Download.Directory)
	stats := statistics.NewStatistics()

	ctrl := workflow.NewController(workflow.ControllerConfig{
		DefaultOptions: workflow.Options{
			Method:         cfg.Defaults.Method,
			Quality:        cfg.Defaults.Quality,
			TargetSizeKB:   cfg.Defaults.TargetSizeKB,
			EnableAnalysis: cfg.Defaults.EnableAnalysis,
		},
		DownloadPrefix: cfg.Download.FilePrefix,
	}, client, inspector, sink, stats, log)

	return ctrl, inspector, stats
}

// runCompress executes the one-shot workflow for a single file.
func runCompress(filePath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cfg)

	log := setupLogger(cfg)
	ctrl, _, stats := buildWorkflow(cfg, log)

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := ctrl.Select(filepath.Base(filePath), data); err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}

	result, err := ctrl.Compress(context.Background())
	if err != nil {
		notice := ctrl.Notice()
		if notice.Kind == workflow.NoticeError {
			return fmt.Errorf("compression failed: %s", notice.Message)
		}
		return fmt.Errorf("compression failed: %w", err)
	}

	if !quiet {
		fmt.Printf("Compressed %s: %d -> %d bytes (%.1f%% smaller, ratio %.2f, %.2fs)\n",
			filepath.Base(filePath), result.OriginalSize, result.CompressedSize,
			result.SavingsPercent(), result.CompressionRatio, result.ProcessingTime)
		if result.Analysis != nil {
			fmt.Printf("Quality metrics: PSNR %.2f dB, SSIM %.4f\n",
				result.Analysis.PSNR, result.Analysis.SSIM)
		}
	}

	if !noDownload {
		location, err := ctrl.Download(context.Background())
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		if !quiet {
			fmt.Printf("Saved artifact to %s\n", location)
		}
	}

	if !quiet {
		fmt.Println("\n" + stats.GetSummary())
	}

	return nil
}

// runAnalyze selects the file and waits for the best-effort analysis.
func runAnalyze(filePath string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cfg)

	log := setupLogger(cfg)
	ctrl, _, _ := buildWorkflow(cfg, log)

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := ctrl.Select(filepath.Base(filePath), data); err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}

	deadline := time.Now().Add(cfg.Timeout())
	for {
		state, analysis := ctrl.AnalysisStatus()
		switch state {
		case workflow.AnalysisAvailable:
			fmt.Printf("Analysis for %s:\n", filepath.Base(filePath))
			fmt.Printf("  Entropy:            %.2f\n", analysis.Entropy)
			fmt.Printf("  Mean intensity:     %.2f\n", analysis.MeanIntensity)
			fmt.Printf("  Std deviation:      %.2f\n", analysis.StandardDeviation)
			fmt.Printf("  Complexity:         %s\n", analysis.Complexity)
			if len(analysis.DominantColors) > 0 {
				fmt.Printf("  Dominant colors:    %s\n", strings.Join(analysis.DominantColors, ", "))
			}
			if analysis.Recommendation != "" {
				fmt.Printf("  Recommendation:     %s\n", analysis.Recommendation)
			}
			return nil
		case workflow.AnalysisUnavailable:
			fmt.Println("Analysis unavailable (service unreachable or returned an error)")
			return nil
		}

		if time.Now().After(deadline) {
			fmt.Println("Analysis timed out")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// runServe starts the web server and handles graceful shutdown.
func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagOverrides(cfg)

	log := setupLogger(cfg)
	ctrl, inspector, stats := buildWorkflow(cfg, log)
	server := web.NewServer(cfg, log, ctrl, inspector, stats)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.Start(port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	if !quiet {
		fmt.Printf("Web interface started on http://localhost:%d\n", port)
		fmt.Printf("Press Ctrl+C to stop the server\n\n")
	}

	<-sigChan
	fmt.Println("\nShutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if !quiet {
		fmt.Println("\n" + stats.GetSummary())
	}

	return nil
}

// loadConfig loads configuration from file and environment.
func loadConfig() (*config.Config, error) {
	return config.LoadConfig(cfgFile)
}

// applyFlagOverrides folds CLI flags into the loaded configuration.
func applyFlagOverrides(cfg *config.Config) {
	if method != "" {
		cfg.Defaults.Method = method
	}
	if quality != 0 {
		cfg.Defaults.Quality = quality
	}
	if targetSizeKB > 0 {
		cfg.Defaults.TargetSizeKB = targetSizeKB
	}
	if noAnalysis {
		cfg.Defaults.EnableAnalysis = false
	}
	if outputDir != "" {
		cfg.Download.Directory = outputDir
	}
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.LoggerConfig{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    !quiet,
	}

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
