// checkphoto runs badge photo validation, and optionally the identity document
// match, against local files and prints the outcome as JSON.
//
// Usage:
//
//	checkphoto -photo badge.jpg [-cin identity.pdf]
//
// Provider settings come from the same environment variables as the API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/saturnino-fabrica-de-software/badgecheck/internal/config"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/document"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/domain"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/face"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/quality"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/service"
	"github.com/saturnino-fabrica-de-software/badgecheck/internal/session"
)

type report struct {
	Photo *domain.PhotoValidation `json:"photo"`
	Match *matchReport            `json:"match,omitempty"`
}

type matchReport struct {
	Match          bool     `json:"match"`
	Distance       *float64 `json:"distance,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty"`
	ModelThreshold *float64 `json:"model_threshold,omitempty"`
	Message        string   `json:"message"`
	Page           int      `json:"page,omitempty"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("checkphoto", flag.ContinueOnError)
	fs.SetOutput(stderr)
	photoPath := fs.String("photo", "", "Badge photo (jpeg, png or webp)")
	cinPath := fs.String("cin", "", "Identity document (pdf), optional")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *photoPath == "" {
		fs.Usage()
		return errors.New("-photo is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLoggerTo(cfg.Environment, stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	detector, verifier, err := face.NewProviders(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to create face providers: %w", err)
	}
	documentDetector, err := face.NewDocumentDetector(ctx, cfg, detector, nil)
	if err != nil {
		return fmt.Errorf("failed to create document detector: %w", err)
	}

	rasterizer := document.NewFitzRasterizer(cfg.DocumentDPI, cfg.MaxDocumentPages)
	locatorCfg := document.DefaultLocatorConfig()
	locatorCfg.MaxPages = cfg.MaxDocumentPages
	locatorCfg.MaxBytes = cfg.MaxDocumentBytes
	locatorCfg.PageTimeout = cfg.PageDetectionTimeout
	locatorCfg.RequireScanned = cfg.RequireScannedDocument

	store := session.NewMemoryStore(0)
	defer store.Stop()

	svc := service.NewBadgeService(
		quality.NewEvaluator(detector, logger),
		document.NewLocator(documentDetector, rasterizer, rasterizer, locatorCfg, logger),
		verifier,
		store,
		logger,
		service.WithThreshold(cfg.MatchThreshold),
		service.WithMaxImageBytes(cfg.MaxImageBytes),
	)

	out, err := check(ctx, svc, *photoPath, *cinPath)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type badgeChecker interface {
	ValidatePhoto(ctx context.Context, sessionID string, imageBytes []byte) (*domain.PhotoValidation, error)
	MatchFaces(ctx context.Context, sessionID string, documentBytes []byte) (*domain.SimilarityResult, error)
}

func check(ctx context.Context, svc badgeChecker, photoPath, cinPath string) (*report, error) {
	photo, err := os.ReadFile(photoPath)
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}

	validation, err := svc.ValidatePhoto(ctx, "", photo)
	if err != nil {
		return nil, fmt.Errorf("validate photo: %w", err)
	}
	out := &report{Photo: validation}

	if cinPath == "" || !validation.ComparisonPossible {
		return out, nil
	}

	doc, err := os.ReadFile(cinPath)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	result, err := svc.MatchFaces(ctx, validation.SessionID, doc)
	if err != nil {
		return nil, fmt.Errorf("match faces: %w", err)
	}

	out.Match = &matchReport{Match: result.Matched, Message: result.Message}
	if result.Compared {
		distance, threshold, modelThreshold := result.Distance, result.Threshold, result.ModelThreshold
		out.Match.Distance = &distance
		out.Match.Threshold = &threshold
		out.Match.ModelThreshold = &modelThreshold
		out.Match.Page = result.PageNumber
	}
	return out, nil
}
