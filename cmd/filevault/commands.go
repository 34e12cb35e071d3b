package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"filevault/internal/config"
	"filevault/internal/remote"
	dav "filevault/internal/webdav"
)

type command func(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error

var commands = map[string]command{
	"upload":   runUpload,
	"download": runDownload,
	"share":    runShare,
	"remove":   runRemove,
	"serve":    runServe,
}

// bucketChecker is implemented by backends that can verify their target up front.
type bucketChecker interface {
	CheckBucket(ctx context.Context) error
}

func openStorage(ctx context.Context, cfg *config.Config) (remote.FileStorage, error) {
	storage, err := remote.NewFileStorage(cfg.Remote, cfg.Upload)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if bc, ok := storage.(bucketChecker); ok {
		if err := bc.CheckBucket(ctx); err != nil {
			return nil, err
		}
	}
	return storage, nil
}

func runUpload(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errUsage
	}
	storage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	if err := storage.Upload(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(out, "uploaded %s\n", args[1])
	return nil
}

func runDownload(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	storage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	local, err := storage.Download(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(out, local)
	return nil
}

func runShare(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("share", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	expire := fs.Bool("expire", false, "expire the link after two days")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}

	storage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	ref, err := storage.GetDownloadReference(ctx, fs.Arg(0), *expire)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, ref.URL)
	if t, ok := ref.ExpiresAt(); ok {
		fmt.Fprintf(out, "expires %s\n", t.Format(time.DateTime))
	}
	return nil
}

func runRemove(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	storage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	if err := storage.Remove(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "removed %s\n", args[0])
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) != 0 {
		return errUsage
	}

	server := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: dav.NewLocalServer(cfg.Server.Auth.User, cfg.Server.Auth.Pass),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Filevault emulator listening on %s", cfg.Server.Listen)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
