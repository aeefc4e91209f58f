// Command headshot runs the generation pipeline once against a local photo
// and saves the result next to it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"headshot/internal/domain"
	"headshot/internal/headshot"
	"headshot/internal/infra"
	"headshot/internal/storage"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("headshot", flag.ContinueOnError)
	input := fs.String("in", "", "path to the source photo (required)")
	outDir := fs.String("out", ".", "directory to save the result in")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		fs.Usage()
		return errors.New("missing -in")
	}

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger(cfg.AppEnv)

	file, err := os.Open(*input)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnreadableFile, err)
	}
	img, err := domain.LoadEncodedImage(file)
	file.Close()
	if err != nil {
		return err
	}

	sess := domain.NewSession(filepath.Base(*input))
	if err := sess.SelectImage(img); err != nil {
		return err
	}

	pipeline := headshot.NewService(headshot.Options{
		APIKey:  infra.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})

	ctx := context.Background()
	snap, err := pipeline.Generate(ctx, sess)
	if err != nil {
		return err
	}
	if snap.Phase == domain.PhaseFailed {
		return errors.New(snap.Error)
	}

	store, err := storage.NewFileStore(*outDir)
	if err != nil {
		return err
	}
	key, err := headshot.Export(ctx, sess, store)
	if err != nil {
		return err
	}
	fmt.Println(filepath.Join(store.BasePath(), key))
	return nil
}
