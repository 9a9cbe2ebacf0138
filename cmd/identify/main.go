package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"plantscan/internal/capture"
	"plantscan/internal/plantid"
	"plantscan/internal/render"
	"plantscan/internal/session"
	"plantscan/internal/store"
)

func main() {
	var (
		imagePath = flag.String("image", "", "Path to the plant photo to identify")
		asJSON    = flag.Bool("json", false, "Print the result view as JSON")
		noColor   = flag.Bool("no-color", false, "Disable colored probability badges")
		timeout   = flag.Duration("timeout", 0, "Identification timeout (env PLANT_ID_TIMEOUT, default 30s)")
		maxMB     = flag.Int("max-mb", 10, "Largest accepted photo in megabytes")
		verbose   = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	path := strings.TrimSpace(*imagePath)
	if path == "" && flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "usage: identify -image photo.jpg [-json] [-no-color] [-timeout 30s]")
		os.Exit(2)
	}

	cfg := loadConfig(*timeout)
	client, err := plantid.NewClient(cfg)
	if err != nil {
		logrus.Fatalf("plant.id client: %v", err)
	}

	db, err := store.Open(store.MemoryDSN("identify"), true)
	if err != nil {
		logrus.Fatalf("open capture store: %v", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close capture store")
		}
	}()

	sess, err := session.New(db, client)
	if err != nil {
		logrus.Fatalf("session: %v", err)
	}

	ctx := context.Background()
	photo, err := capture.FileSource{Path: path, MaxBytes: int64(*maxMB) << 20}.Capture(ctx)
	if err != nil {
		logrus.Fatalf("read photo: %v", err)
	}

	if !*asJSON {
		fmt.Fprintln(os.Stderr, render.LoadingText)
	}
	view, runErr := sess.Identify(ctx, photo)
	if err := writeView(os.Stdout, view, *asJSON, useColor(*noColor)); err != nil {
		logrus.Fatalf("write result: %v", err)
	}
	if runErr != nil || view.State == session.StateFailed {
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "identification failed: %v\n", runErr)
		}
		os.Exit(1)
	}
}

func loadConfig(timeout time.Duration) plantid.Config {
	cfg := plantid.Config{
		APIKey:   os.Getenv("PLANT_ID_API_KEY"),
		BaseURL:  os.Getenv("PLANT_ID_BASE_URL"),
		Language: os.Getenv("PLANT_ID_LANGUAGE"),
		Timeout:  timeout,
	}
	if cfg.Timeout <= 0 {
		if v := os.Getenv("PLANT_ID_TIMEOUT"); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				cfg.Timeout = d
			}
		}
	}
	return cfg
}

func writeView(w io.Writer, view session.View, asJSON, color bool) error {
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(view)
	}
	if view.State == session.StateFailed {
		return nil
	}
	return render.WriteText(w, view.Cards, render.TextOptions{Color: color})
}

func useColor(disabled bool) bool {
	if disabled || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
