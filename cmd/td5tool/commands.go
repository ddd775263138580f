package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/td5kit/internal/config"
	"github.com/Faultbox/td5kit/internal/logger"
	"github.com/Faultbox/td5kit/pkg/formats"
	"github.com/Faultbox/td5kit/pkg/level"
	"github.com/Faultbox/td5kit/pkg/mesh"
	"github.com/Faultbox/td5kit/pkg/texpack"
)

// decodeArg decodes the model file named by path with the given -format value.
func decodeArg(cfg *config.Config, path, format string) ([]*mesh.Mesh, error) {
	f, err := parseFormat(format)
	if err != nil {
		return nil, err
	}
	meshes, err := formats.DecodeFile(path, f, cfg.DecodeOptions("", logger.Named("formats")))
	if err != nil {
		return nil, err
	}
	reportWarnings(meshes)
	return meshes, nil
}

func cmdInfo(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	format := formatFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: td5tool info [-format f] <file>", errUsage)
	}

	meshes, err := decodeArg(cfg, fs.Arg(0), *format)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "File:   %s\n", fs.Arg(0))
	fmt.Fprintf(stdout, "Meshes: %d\n", len(meshes))
	for _, m := range meshes {
		printMesh(stdout, m)
	}
	return nil
}

func printMesh(w io.Writer, m *mesh.Mesh) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s\n", m.Name)
	fmt.Fprintf(w, "  Vertices:  %d\n", len(m.Vertices))
	fmt.Fprintf(w, "  Triangles: %d\n", m.TriangleCount())
	fmt.Fprintf(w, "  Quads:     %d\n", m.QuadCount())
	fmt.Fprintf(w, "  Origin:    %.3f %.3f %.3f\n", m.Origin[0], m.Origin[1], m.Origin[2])

	lo, hi := m.BoundsMin, m.BoundsMax
	if lo == hi {
		lo, hi = m.Bounds()
	}
	fmt.Fprintf(w, "  Bounds:    (%.3f %.3f %.3f) - (%.3f %.3f %.3f)\n", lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
	if m.Billboard {
		fmt.Fprintln(w, "  Billboard: yes")
	}

	fmt.Fprintln(w, "  Materials:")
	for i, mat := range m.Materials {
		faces := 0
		if i < len(m.Submeshes) {
			faces = m.Submeshes[i].FaceCount()
		}
		fmt.Fprintf(w, "    %-3d %-20s %d faces\n", mat.Slot, mat.Name(), faces)
	}
	if len(m.Warnings) > 0 {
		fmt.Fprintf(w, "  Warnings:  %d\n", len(m.Warnings))
	}
}

func cmdOBJ(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("obj", flag.ContinueOnError)
	format := formatFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: td5tool obj [-format f] <file> [out.obj]", errUsage)
	}

	meshes, err := decodeArg(cfg, fs.Arg(0), *format)
	if err != nil {
		return err
	}
	return writeOBJ(fs.Arg(1), stdout, meshes)
}

func cmdConvert(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	format := formatFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("%w: td5tool convert [-format f] <file> <out.dat>", errUsage)
	}

	meshes, err := decodeArg(cfg, fs.Arg(0), *format)
	if err != nil {
		return err
	}

	out := fs.Arg(1)
	for i, m := range meshes {
		path := out
		if len(meshes) > 1 {
			ext := filepath.Ext(out)
			path = fmt.Sprintf("%s_%03d%s", strings.TrimSuffix(out, ext), i, ext)
		}
		if err := encodeFile(path, m); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Converted: %s -> %s\n", m.Name, path)
	}
	return nil
}

func encodeFile(path string, m *mesh.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := formats.EncodeTD5(f, m); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encoding %s: %w", m.Name, err)
	}
	return f.Close()
}

func cmdStrips(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("strips", flag.ContinueOnError)
	offset := fs.Int64("offset", 0, "Byte offset of the strip section inside the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: td5tool strips [-offset n] <file> [out.obj]", errUsage)
	}

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(*offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking to strip section: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "_strips"
	m, err := formats.DecodeStrips(f, cfg.DecodeOptions(name, logger.Named("strips")))
	if err != nil {
		return err
	}
	if n := reportWarnings([]*mesh.Mesh{m}); n > 0 {
		logger.Info("strip records skipped", zap.Int("count", n))
	}
	return writeOBJ(fs.Arg(1), stdout, []*mesh.Mesh{m})
}

func cmdTrack(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("track", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: td5tool track <file.mp> [out.obj]", errUsage)
	}

	meshes, err := decodeArg(cfg, fs.Arg(0), formats.FormatTDO3Track.String())
	if err != nil {
		return err
	}
	return writeOBJ(fs.Arg(1), stdout, meshes)
}

func cmdLevel(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("level", flag.ContinueOnError)
	format := formatFlag(fs)
	textures := fs.String("textures", "", "Directory of images written by unpack-textures")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("%w: td5tool level [-format f] [-textures dir] <models.dat> [out.obj]", errUsage)
	}

	f, err := cfg.LevelFormat()
	if err != nil {
		return err
	}
	if *format != "" {
		if f, err = formats.ParseFormat(*format); err != nil {
			return err
		}
	}

	path := fs.Arg(0)
	archive, err := level.Open(path)
	if err != nil {
		return err
	}
	defer archive.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	meshes, err := archive.Decode(ctx, f, cfg.Import.Workers, cfg.DecodeOptions(name, logger.Named("level")))
	if err != nil {
		return err
	}
	reportWarnings(meshes)
	logger.Info("level decoded", zap.String("file", path), zap.Int("models", len(meshes)))

	if *textures != "" {
		imgFormat, err := cfg.TextureFormat()
		if err != nil {
			return err
		}
		found := linkUnpackedTextures(*textures, imgFormat, meshes)
		logger.Info("textures linked", zap.String("dir", *textures), zap.Int("materials", found))
	}
	return writeOBJ(fs.Arg(1), stdout, meshes)
}

// linkUnpackedTextures points materials at the images unpack-textures wrote
// to dir, one per texture id. It returns the number of materials linked.
func linkUnpackedTextures(dir string, f texpack.ImageFormat, meshes []*mesh.Mesh) int {
	found := 0
	for _, m := range meshes {
		for i := range m.Materials {
			mat := &m.Materials[i]
			path := filepath.Join(dir, texpack.FileName(int(mat.TextureID), f))
			if _, err := os.Stat(path); err != nil {
				continue
			}
			mat.TexturePath = path
			found++
		}
	}
	return found
}

func cmdUnpackModels(_ *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("unpack-models", flag.ContinueOnError)
	list := fs.Bool("l", false, "List entries instead of extracting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || (!*list && fs.NArg() < 2) {
		return fmt.Errorf("%w: td5tool unpack-models [-l] <models.dat> <dir> [entry...]", errUsage)
	}

	archive, err := level.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	if *list {
		for _, e := range archive.Entries() {
			fmt.Fprintf(stdout, "%s  group %d  model %d  %d bytes\n", e.Name(), e.Group, e.Index, e.Size)
		}
		fmt.Fprintf(stdout, "\n%d models\n", len(archive.Entries()))
		return nil
	}

	outputDir := fs.Arg(1)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	names := fs.Args()[2:]
	if len(names) == 0 {
		names = archive.List()
	}

	extracted := 0
	for _, name := range names {
		if !archive.Contains(name) {
			logger.Warn("no such model", zap.String("name", name))
			continue
		}
		data, err := archive.Read(name)
		if err != nil {
			logger.Warn("skipping model", zap.String("name", name), zap.Error(err))
			continue
		}
		base := strings.TrimSuffix(strings.ToLower(filepath.Base(name)), ".dat")
		outputPath := filepath.Join(outputDir, strings.ToUpper(base)+".dat")
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", outputPath, err)
		}
		fmt.Fprintf(stdout, "Extracted: %s (%d bytes)\n", outputPath, len(data))
		extracted++
	}

	fmt.Fprintf(stdout, "\nExtracted %d of %d models\n", extracted, len(names))
	return nil
}

func cmdUnpackTextures(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("unpack-textures", flag.ContinueOnError)
	format := fs.String("format", "", "Image format (png, webp, tga, bmp); default from config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("%w: td5tool unpack-textures [-format f] <textures.dat> <dir>", errUsage)
	}

	imgFormat, err := cfg.TextureFormat()
	if err != nil {
		return err
	}
	if *format != "" {
		if imgFormat, err = texpack.ParseImageFormat(*format); err != nil {
			return err
		}
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	textures, err := texpack.Decode(f, logger.Named("texpack"))
	if err != nil {
		return err
	}

	paths, err := texpack.Save(fs.Arg(1), textures, imgFormat)
	for _, p := range paths {
		fmt.Fprintf(stdout, "Extracted: %s\n", p)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "\nExtracted %d textures\n", len(paths))
	return nil
}

// cmdConfig writes the settings in effect, after the config file and global
// flags were applied, to path or to the user config directory.
func cmdConfig(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := fs.Arg(0)
	if path == "" {
		saved, err := cfg.Save()
		if err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		path = saved
	} else if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(stdout, "Wrote: %s\n", path)
	return nil
}
