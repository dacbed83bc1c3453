package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/nikhilbhutani/docextract/internal/config"
	"github.com/nikhilbhutani/docextract/internal/display"
	"github.com/nikhilbhutani/docextract/internal/document"
	"github.com/nikhilbhutani/docextract/internal/llm"
	"github.com/nikhilbhutani/docextract/internal/models"
	"github.com/nikhilbhutani/docextract/internal/ocr"
	"github.com/nikhilbhutani/docextract/internal/staging"
	"github.com/nikhilbhutani/docextract/internal/structuring"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: could not read .env:", err)
	}

	app := &cli.App{
		Name:  "docextract",
		Usage: "extract key/value data from scanned documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			level := config.LogConfig{Level: strings.ToLower(c.String("log-level"))}.SlogLevel()
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "extract",
				Usage:     "run OCR and structuring locally on a file",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "image or pdf (default: from the file extension)",
					},
					&cli.BoolFlag{
						Name:  "table",
						Usage: "render a key/value list and table instead of JSON",
					},
				},
				Action: runExtract,
			},
			{
				Name:      "upload",
				Usage:     "upload a file to a running server and display the result",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "server",
						Value:   "http://localhost:5000",
						Usage:   "base URL of the API server",
						EnvVars: []string{"DOCEXTRACT_SERVER"},
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Value: 3 * time.Minute,
						Usage: "overall request timeout",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "print the raw response body",
					},
				},
				Action: runUpload,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fileArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(fmt.Sprintf("usage: docextract %s %s", c.Command.Name, c.Command.ArgsUsage), 2)
	}
	return c.Args().First(), nil
}

func runExtract(c *cli.Context) error {
	path, err := fileArg(c)
	if err != nil {
		return err
	}

	docType := models.DocumentImage
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		docType = models.DocumentPDF
	}
	if t := c.String("type"); t != "" {
		if docType, err = models.ParseDocumentType(t); err != nil {
			return cli.Exit(err.Error(), 2)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.Default()
	stager, err := staging.NewStager(cfg.Upload.Dir, cfg.Upload.MaxBytes, logger)
	if err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	head := make([]byte, 512)
	n, _ := src.Read(head)
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}

	// the pipeline deletes what it is given, so it works on a staged copy
	staged, err := stager.Stage(src, filepath.Base(path), display.DetectMIME(path, head[:n]), docType)
	if err != nil {
		return err
	}
	defer staged.Remove()

	gw, err := llm.NewGateway(cfg.LLM)
	if err != nil {
		return err
	}
	svc := document.NewService(ocr.NewExtractor(cfg.OCR, nil, logger), structuring.NewClient(gw, cfg.LLM, logger), logger)

	result, err := svc.ExtractDocument(c.Context, staged, docType)
	if err != nil {
		display.RenderError(os.Stderr, err)
		return cli.Exit("", 1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if !c.Bool("table") {
		fmt.Println(string(out))
		return nil
	}

	body, err := json.Marshal(models.UploadResponse{ExtractedText: result})
	if err != nil {
		return err
	}
	return display.Render(os.Stdout, display.Interpret(display.ResolveText(body)), result.IsFallback())
}

func runUpload(c *cli.Context) error {
	path, err := fileArg(c)
	if err != nil {
		return err
	}

	client := display.NewClient(c.String("server"), c.Duration("timeout"))
	outcome, err := client.UploadFile(c.Context, path)
	if err != nil {
		display.RenderError(os.Stderr, err)
		return cli.Exit("", 1)
	}

	if c.Bool("json") {
		fmt.Println(strings.TrimSpace(string(outcome.Body)))
		return nil
	}
	return display.Render(os.Stdout, outcome.View, outcome.Fallback)
}
