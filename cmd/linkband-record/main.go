package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/config"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/logger"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/oss"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/recording"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sample"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/sink"
	"github.com/Brian-Chae/mind-breeze-ai-report/pkg/storage"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to configuration file")
	dataType   = flag.String("data-type", "eeg", "Sample stream to record: eeg, ppg, acc or processed")
	formats    = flag.String("formats", "", "Comma-separated output formats (overrides configuration)")
	input      = flag.String("input", "", "JSONL sample file to record, \"-\" for stdin; empty generates synthetic samples")
	rate       = flag.Int("rate", 250, "Synthetic sample rate in Hz")
	duration   = flag.Duration("duration", 10*time.Second, "Synthetic recording length")
	version    = "1.0.0"
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(
		cfg.Logging.Level,
		cfg.Logging.Format,
		cfg.Logging.Output,
		cfg.Logging.EnableTracing,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info(fmt.Sprintf("Starting LINK BAND recorder v%s", version))

	dt, err := sample.ParseDataType(*dataType)
	if err != nil {
		log.Fatal("Invalid data type", logger.Fields{"error": err.Error()})
	}

	outputFormats := cfg.Recording.Formats
	if *formats != "" {
		outputFormats = strings.Split(*formats, ",")
		for i := range outputFormats {
			outputFormats[i] = strings.TrimSpace(outputFormats[i])
		}
	}

	log.Info("Configuration loaded successfully", logger.Fields{
		"data_type":  dt.String(),
		"formats":    outputFormats,
		"output_dir": cfg.Storage.OutputDirectory,
		"chunk_size": cfg.Recording.ChunkSize,
	})

	// Initialize storage manager
	storageMgr, err := storage.NewManager(
		cfg.Storage.OutputDirectory,
		cfg.Storage.CleanupEnabled,
		cfg.Storage.Retention,
		log,
	)
	if err != nil {
		log.Fatal("Failed to initialize storage manager", logger.Fields{"error": err.Error()})
	}
	if err := storageMgr.CheckDiskSpace(); err != nil {
		log.Fatal("Output directory is not writable", logger.Fields{"error": err.Error()})
	}

	// Initialize OSS uploader when uploads are enabled
	var uploader *oss.Uploader
	if cfg.OSS.Enabled {
		uploader, err = oss.NewUploader(&cfg.OSS, log)
		if err != nil {
			log.Fatal("Failed to initialize OSS uploader", logger.Fields{"error": err.Error()})
		}
		log.Info("OSS uploader initialized", logger.Fields{
			"endpoint": cfg.OSS.Endpoint,
			"bucket":   cfg.OSS.Bucket,
		})
	}

	// Open the sample source
	source, err := openSource(dt, cfg.Recording.ChunkSize)
	if err != nil {
		log.Fatal("Failed to open sample source", logger.Fields{"error": err.Error()})
	}
	defer source.Close()

	// Set up the recording: one directory per recording, one sink per format
	recordingID := uuid.New().String()
	recordingDir, err := storageMgr.RecordingDir(recordingID)
	if err != nil {
		log.Fatal("Failed to create recording directory", logger.Fields{"error": err.Error()})
	}
	coord := recording.NewCoordinatorWithID(
		recordingID,
		sink.NewFileFactory(recordingDir, cfg.Recording.BufferSize),
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := coord.Initialize(ctx, dt, outputFormats); err != nil {
		log.Fatal("Failed to start recording", logger.Fields{"error": err.Error()})
	}

	// Stream chunks until the source is exhausted or a signal arrives
	for {
		chunk, err := source.Next()
		if len(chunk) > 0 {
			if werr := coord.Write(ctx, chunk); werr != nil {
				if errors.Is(werr, context.Canceled) {
					break
				}
				// Per-format failures are isolated; log and keep going
				log.Error("Chunk write failed", logger.Fields{
					"error":   werr.Error(),
					"samples": len(chunk),
				})
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Error("Sample source failed", logger.Fields{"error": err.Error()})
			break
		}
		if ctx.Err() != nil {
			log.Info("Shutdown signal received, finalizing recording...")
			break
		}
	}

	// Finalize with a fresh context so an interrupt still closes cleanly
	finalizeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := coord.Finalize(finalizeCtx)
	if err != nil {
		log.Error("Recording finalized with errors", logger.Fields{"error": err.Error()})
	}

	fmt.Printf("\nRecording %s (%s)\n", coord.RecordingID(), dt)
	fmt.Printf("  %-8s %12s %10s  %8s\n", "FORMAT", "BYTES", "SAMPLES", "CRC32")
	for _, meta := range results {
		fmt.Printf("  %-8s %12d %10d  %08X\n", meta.Format, meta.Bytes, meta.Samples, meta.CRC32)
	}
	fmt.Printf("  files in %s\n", recordingDir)

	// Upload the finished files when configured
	if uploader != nil {
		files, err := storageMgr.Files(coord.RecordingID())
		if err != nil {
			log.Fatal("Failed to list recording files", logger.Fields{"error": err.Error()})
		}
		uploadCtx, cancel := context.WithTimeout(context.Background(), cfg.OSS.UploadTimeout)
		defer cancel()

		uploaded, err := uploader.UploadAll(uploadCtx, coord.RecordingID(), files)
		if err != nil {
			log.Error("Some uploads failed", logger.Fields{"error": err.Error()})
		}
		for _, r := range uploaded {
			fmt.Printf("  uploaded %s (%d bytes)\n", r.ObjectKey, r.Size)
		}
		if err != nil {
			os.Exit(1)
		}
	}

	if err != nil {
		os.Exit(1)
	}
}

// openSource picks the sample source from the input flag: a JSONL file,
// stdin, or the synthetic generator.
func openSource(dt sample.DataType, chunkSize int) (sampleSource, error) {
	switch *input {
	case "":
		return newSyntheticSource(dt, *rate, *duration, chunkSize), nil
	case "-":
		return newJSONLSource(os.Stdin, dt, chunkSize), nil
	default:
		f, err := os.Open(*input)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		return newJSONLSource(f, dt, chunkSize), nil
	}
}
