// Command imager applies an edit profile to a photo from the command line:
// the file is normalized (EXIF orientation corrected, oversized originals
// capped), run through the configured plugins, committed, and written back
// out. It drives the same engine a host page embeds.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/DevvisioN/imager"
	"github.com/DevvisioN/imager/plugins"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("imager %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	var (
		in      = flag.String("in", "", "input image file (jpeg or png)")
		out     = flag.String("out", "", "output image file")
		profile = flag.String("profile", "", "yaml edit profile (imager options)")
		active  = flag.String("plugins", "", "comma-separated plugin names (grayscale, tint, frame)")
		quality = flag.Float64("quality", 0, "jpeg quality 0-1 (0 = profile/default)")
		format  = flag.String("format", "", "output format: jpeg or png (default: detected)")
		label   = flag.String("label", "Edited", "history label for the commit")
		verbose = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "usage: imager -in photo.jpg -out edited.jpg [-profile edit.yaml] [-plugins grayscale,tint]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	log := buildLogger(*verbose)
	defer log.Sync()

	if err := run(*in, *out, *profile, *active, *quality, *format, *label, log); err != nil {
		log.Fatal("edit failed", zap.Error(err))
	}
}

func buildLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

func run(in, out, profilePath, active string, quality float64, format, label string, log *zap.Logger) error {
	opts, err := loadProfile(profilePath)
	if err != nil {
		return err
	}
	if active != "" {
		opts.Plugins = strings.Split(active, ",")
	}
	if quality != 0 {
		opts.Quality = quality
	}
	if format != "" {
		opts.Format = format
	}

	source, err := fileDataURI(in)
	if err != nil {
		return err
	}

	catalog := imager.NewCatalog()
	catalog.Register("grayscale", plugins.NewGrayscale)
	catalog.Register("tint", plugins.NewTint)
	catalog.Register("frame", plugins.NewFrame)

	session, err := imager.New(imager.NewElement(log), catalog, opts, imager.WithLogger(log))
	if err != nil {
		return err
	}
	defer session.Remove(true)

	if err := session.LoadSync(context.Background(), source); err != nil {
		return err
	}
	w, h := session.ImageRealSize()
	log.Info("image normalized",
		zap.Int("width", w), zap.Int("height", h),
		zap.String("format", session.Element().Format()),
		zap.Int("exif_orientation", int(session.Element().Orientation())))

	if err := session.StartEditing(); err != nil {
		return err
	}
	if err := session.CommitChanges(label, nil); err != nil {
		return err
	}

	var result imager.EditStopPayload
	session.On(imager.EventEditStop, func(p any) {
		if stop, ok := p.(imager.EditStopPayload); ok {
			result = stop
		}
	})
	if err := session.StopEditing(); err != nil {
		return err
	}
	if result.ImageData == "" {
		return fmt.Errorf("no image data produced")
	}
	for name, data := range result.PluginsData {
		log.Info("plugin state", zap.String("plugin", name), zap.Any("data", data))
	}

	return writeDataURI(out, result.ImageData)
}

func loadProfile(path string) (imager.Options, error) {
	var opts imager.Options
	if path == "" {
		return opts, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return opts, nil
}

func fileDataURI(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	mime := "image/jpeg"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func writeDataURI(path, uri string) error {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return fmt.Errorf("malformed image data")
	}
	raw, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return fmt.Errorf("decode image data: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
