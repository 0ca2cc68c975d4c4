package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/docscan/internal/config"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/logger"
	"github.com/ironsheep/docscan/internal/ocr"
	"github.com/ironsheep/docscan/internal/scanerr"
	"github.com/ironsheep/docscan/internal/scanner"
	"github.com/ironsheep/docscan/internal/server"
	"github.com/ironsheep/docscan/internal/transport"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitNoDocument = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Fprintf(stdout, "docscan %s\n", Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(stdout, "  Tesseract:  %s\n", ocr.Version())
			return exitOK
		}
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "docscan: %v\n", err)
		return exitError
	}
	logger.SetLevel(cfg.LogLevel)
	server.Version = Version
	transport.Version = Version

	if len(args) > 0 {
		switch args[0] {
		case "mcp":
			return runMCP(cfg, stderr)
		case "serve":
			return runServe(cfg, args[1:], stderr)
		}
	}
	return runScan(cfg, args, stdout, stderr)
}

func runMCP(cfg *config.Config, stderr io.Writer) int {
	logger.WithField("version", Version).Debug("starting MCP server")
	if err := server.New(cfg).Run(); err != nil {
		fmt.Fprintf(stderr, "docscan: server error: %v\n", err)
		return exitError
	}
	return exitOK
}

func runServe(cfg *config.Config, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("docscan serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", cfg.HTTPAddr, "listen address")
	noOCR := fs.Bool("no-ocr", false, "reject ocr=true requests instead of running Tesseract")
	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}

	logger.UseJSON()
	var recognizer ocr.Recognizer
	if !*noOCR {
		recognizer = ocr.NewTesseract(cfg.TessdataPrefix)
	}

	srv := &http.Server{
		Addr:         *addr,
		Handler:      transport.NewHandler(cfg, recognizer),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"address": *addr,
			"timeout": cfg.RequestTimeout,
		}).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		logger.WithError(err).Error("Failed to start server")
		return exitError
	case <-quit:
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		return exitError
	}
	logger.Info("Server exited")
	return exitOK
}

type scanFlags struct {
	image         string
	out           string
	noThreshold   bool
	debugDir      string
	ocr           bool
	language      string
	fill          string
	blockSize     int
	offset        float64
	method        string
	workingHeight int
}

func parseScanFlags(cfg *config.Config, args []string, stderr io.Writer) (*scanFlags, error) {
	f := &scanFlags{}
	fs := flag.NewFlagSet("docscan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.image, "image", "", "path to the photo to scan")
	fs.StringVar(&f.out, "out", "scan.png", "where to write the scan; the extension picks the format")
	fs.BoolVar(&f.noThreshold, "no-threshold", false, "keep the flattened page in colour instead of binarizing it")
	fs.StringVar(&f.debugDir, "debug-dir", "", "write edges.png, contour.png and warped.png here")
	fs.BoolVar(&f.ocr, "ocr", false, "print the text of the scan (needs Tesseract)")
	fs.StringVar(&f.language, "lang", cfg.OCRLanguage, "Tesseract language for --ocr")
	fs.StringVar(&f.fill, "fill", cfg.Fill, "hex colour for areas outside the photo")
	fs.IntVar(&f.blockSize, "block-size", cfg.BlockSize, "odd neighbourhood size for the local threshold")
	fs.Float64Var(&f.offset, "offset", cfg.Offset, "bias subtracted from the local statistic")
	fs.StringVar(&f.method, "method", cfg.Method, "local statistic: gaussian or mean")
	fs.IntVar(&f.workingHeight, "working-height", cfg.WorkingHeight, "height of the copy detection runs on")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: docscan [flags] [--image] <photo>\n")
		fmt.Fprintf(stderr, "       docscan mcp            serve MCP tools over stdio\n")
		fmt.Fprintf(stderr, "       docscan serve [--addr] serve POST /scan over HTTP\n")
		fmt.Fprintf(stderr, "       docscan --version\n\n")
		fmt.Fprintf(stderr, "Turn a photo of a document into a flat, black-and-white scan.\n\n")
		fmt.Fprintf(stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExit status is 2 when no document is found, 1 on other errors.\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if f.image == "" && fs.NArg() > 0 {
		f.image = fs.Arg(0)
	}
	if f.image == "" || fs.NArg() > 1 {
		fs.Usage()
		return nil, scanerr.Invalid("cli", "exactly one photo is required")
	}
	return f, nil
}

func (f *scanFlags) apply(cfg *config.Config) {
	cfg.Fill = f.fill
	cfg.BlockSize = f.blockSize
	cfg.Offset = f.offset
	cfg.Method = f.method
	cfg.WorkingHeight = f.workingHeight
	cfg.OCRLanguage = f.language
}

func runScan(cfg *config.Config, args []string, stdout, stderr io.Writer) int {
	f, err := parseScanFlags(cfg, args, stderr)
	if err != nil {
		return flagExit(err)
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "docscan: %v\n", err)
		return exitError
	}

	opts, err := cfg.ScanOptions()
	if err != nil {
		fmt.Fprintf(stderr, "docscan: %v\n", err)
		return exitError
	}
	opts.Threshold = !f.noThreshold
	opts.OCR = f.ocr

	s := scanner.New(newDetector(cfg), opts)
	if f.ocr {
		s.WithRecognizer(ocr.NewTesseract(cfg.TessdataPrefix))
	}

	res, err := s.ScanFile(imaging.NewImageCache(), f.image)
	if f.debugDir != "" {
		if _, derr := scanner.WriteDebug(f.debugDir, res); derr != nil {
			fmt.Fprintf(stderr, "docscan: %v\n", derr)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", f.image, err)
		if errors.Is(err, scanerr.ErrNoDocumentFound) {
			return exitNoDocument
		}
		return exitError
	}

	if err := imaging.Save(res.Scan, f.out); err != nil {
		fmt.Fprintf(stderr, "docscan: %v\n", err)
		return exitError
	}
	logger.WithFields(logrus.Fields{
		"out":    f.out,
		"width":  res.Width(),
		"height": res.Height(),
	}).Debug("scan written")

	if res.OCR != nil {
		fmt.Fprintln(stdout, res.OCR.Text)
	}
	return exitOK
}

func flagExit(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	return exitError
}
