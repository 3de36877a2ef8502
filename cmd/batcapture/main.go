package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ironsheep/batcapture/internal/config"
	"github.com/ironsheep/batcapture/internal/ocr"
	"github.com/ironsheep/batcapture/internal/scan"
	"github.com/ironsheep/batcapture/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("batcapture - battery photo capture and label scanner")
	fmt.Println()
	fmt.Println("Usage: batcapture [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <path>  Read configuration from a YAML file")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  BATCAPTURE_LOG_LEVEL=debug         Enable debug logging")
	fmt.Println("  BATCAPTURE_UPLOAD_BASE_URL         Page the upload URL is relative to")
	fmt.Println("  BATCAPTURE_UPLOAD_URL              Upload endpoint (default \"img\")")
	fmt.Println("  BATCAPTURE_MAX_UPLOAD_BYTES        Upload byte budget")
	fmt.Println("  BATCAPTURE_LABEL_LENGTH            Digits in a label")
	fmt.Println("  BATCAPTURE_SCAN_THRESHOLD          Identical reads needed to confirm")
	fmt.Println("  BATCAPTURE_TESSDATA_PREFIX         Tesseract language data directory")
	fmt.Println("  BATCAPTURE_CAMERA_FRAMES           Comma-separated still frames")
	fmt.Println()
	fmt.Println("A .env file in the working directory is loaded if present.")
	fmt.Println("This server communicates via JSON-RPC over stdin/stdout.")
}

func main() {
	var configPath string

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--version" || arg == "-v" || arg == "version":
			fmt.Printf("batcapture %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case arg == "--help" || arg == "-h" || arg == "help":
			usage()
			return
		case arg == "--config":
			if i+1 >= len(args) {
				fmt.Fprintln(os.Stderr, "--config needs a path")
				os.Exit(2)
			}
			i++
			configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		default:
			fmt.Fprintf(os.Stderr, "unknown option %q (see --help)\n", arg)
			os.Exit(2)
		}
	}

	// Configure logging to stderr (stdout is for the protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	debug := os.Getenv("BATCAPTURE_LOG_LEVEL") == "debug"
	if debug {
		log.Printf("batcapture v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ocrCfg := ocr.Config{
		Language:       cfg.OCR.Language,
		TessdataPrefix: cfg.OCR.TessdataPrefix,
		Whitelist:      cfg.Scan.Whitelist,
		Contrast:       cfg.ContrastPercent(),
	}
	if debug {
		info := ocr.GetInfo(ocrCfg)
		log.Printf("OCR: available=%t version=%s language=%s %s", info.Available, info.Version, info.Language, info.Error)
	}

	srv := server.New(cfg, server.Deps{
		Engine: func(context.Context) (scan.Recognizer, error) {
			e, err := ocr.NewEngine(ocrCfg)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		Debug: debug,
	})
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
