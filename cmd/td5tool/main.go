// td5tool is a CLI utility for Test Drive model, level and texture files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/td5kit/internal/config"
	"github.com/Faultbox/td5kit/internal/logger"
	"github.com/Faultbox/td5kit/pkg/formats"
	"github.com/Faultbox/td5kit/pkg/mesh"
)

// errUsage reports a command invoked with missing arguments.
var errUsage = errors.New("usage")

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := config.Args()
	if len(args) < 1 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err := run(ctx, cfg, args, os.Stdout); err != nil {
		logger.Debug("command failed", zap.String("command", args[0]), zap.Bool("usage", errors.Is(err, errUsage)))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

// run dispatches one subcommand. Command output goes to stdout.
func run(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	command, args := args[0], args[1:]

	switch command {
	case "info":
		return cmdInfo(cfg, args, stdout)
	case "obj":
		return cmdOBJ(cfg, args, stdout)
	case "convert":
		return cmdConvert(cfg, args, stdout)
	case "strips":
		return cmdStrips(cfg, args, stdout)
	case "track":
		return cmdTrack(cfg, args, stdout)
	case "level":
		return cmdLevel(ctx, cfg, args, stdout)
	case "unpack-models":
		return cmdUnpackModels(cfg, args, stdout)
	case "unpack-textures":
		return cmdUnpackTextures(cfg, args, stdout)
	case "config":
		return cmdConfig(cfg, args, stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `td5tool - Test Drive model, level and texture utility

Usage:
  td5tool [global options] <command> [options]

Commands:
  info <file>                          Show model information
  obj <file> [out.obj]                 Export a model as Wavefront OBJ
  convert <file> <out.dat>             Re-encode a model as TD5
  strips <file> [out.obj]              Rebuild collision strips as OBJ
  track <file.mp> [out.obj]            Export a track container as OBJ
  level <models.dat> [out.obj]         Export every model of a container
  unpack-models <models.dat> <dir>     Extract container models to files (-l lists)
  unpack-textures <textures.dat> <dir> Extract textures as images
  config [path]                        Save the effective settings as YAML

Global options:
  -config <path>          Config file (default ./td5kit.yaml)
  -debug                  Enable debug logging
  -log-file <path>        Also write logs to this file
  -workers <n>            Level decoding workers (0 = sequential)
  -texture-format <fmt>   png, webp, tga or bmp
  -weld <dist>            Strip weld distance (negative welds exactly)
  -level-format <fmt>     Model format inside level containers

Examples:
  td5tool info car.dat
  td5tool obj -format td6track track.dat track.obj
  td5tool -workers 4 level models.dat level.obj
  td5tool -texture-format webp unpack-textures textures.dat ./textures
  td5tool -workers 4 -texture-format webp config`)
}

// formatFlag registers the per-command -format override.
func formatFlag(fs *flag.FlagSet) *string {
	return fs.String("format", "", "Model format (td5, td6, td6track, tdo3, tdo3track, strips); empty sniffs")
}

// parseFormat converts a -format value; empty means sniff.
func parseFormat(s string) (formats.Format, error) {
	if s == "" {
		return formats.FormatUnknown, nil
	}
	return formats.ParseFormat(s)
}

// writeOBJ writes meshes to path, or to stdout when path is empty or "-".
// A file gets a sibling material library carrying the resolved textures.
func writeOBJ(path string, stdout io.Writer, meshes []*mesh.Mesh) error {
	if path == "" || path == "-" {
		return mesh.WriteOBJ(stdout, meshes...)
	}

	mtlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"
	if err := writeFileWith(mtlPath, func(w io.Writer) error {
		return mesh.WriteMTL(w, filepath.Dir(mtlPath), meshes...)
	}); err != nil {
		return err
	}
	if err := writeFileWith(path, func(w io.Writer) error {
		return mesh.WriteOBJWithLib(w, filepath.Base(mtlPath), meshes...)
	}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote: %s (%d objects)\n", path, len(meshes))
	fmt.Fprintf(stdout, "Wrote: %s\n", mtlPath)
	return nil
}

func writeFileWith(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// reportWarnings logs every recoverable problem recorded on meshes.
func reportWarnings(meshes []*mesh.Mesh) int {
	total := 0
	for _, m := range meshes {
		for _, w := range m.Warnings {
			logger.Warn("decode warning", zap.String("mesh", m.Name), zap.Error(w))
		}
		total += len(m.Warnings)
	}
	return total
}
