package level

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/td5kit/pkg/formats"
	"github.com/Faultbox/td5kit/pkg/mesh"
)

// DecodeModels decodes the model at each offset of rs, in offset order.
// FormatUnknown sniffs every model. Cancellation is checked between models;
// the meshes decoded so far are returned with the context error.
func DecodeModels(ctx context.Context, rs io.ReadSeeker, offsets []int64, f formats.Format, opts formats.Options) ([]*mesh.Mesh, error) {
	var meshes []*mesh.Mesh
	for _, off := range offsets {
		if err := ctx.Err(); err != nil {
			return meshes, err
		}
		if _, err := rs.Seek(off, io.SeekStart); err != nil {
			return meshes, fmt.Errorf("seeking to model at 0x%X: %w", off, err)
		}
		decoded, err := decodeModel(rs, off, f, opts)
		if err != nil {
			return meshes, err
		}
		meshes = append(meshes, decoded...)
	}
	return meshes, nil
}

// DecodeModelsParallel decodes the models at offsets using a pool of
// workers reading through ra. The result order matches offsets. On failure
// the meshes preceding the first failing offset are returned with its error.
func DecodeModelsParallel(ctx context.Context, ra io.ReaderAt, offsets []int64, f formats.Format, workers int, opts formats.Options) ([]*mesh.Mesh, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([][]*mesh.Mesh, len(offsets))
	errs := make([]error, len(offsets))

	pool := pond.NewPool(workers)
	defer pool.StopAndWait()

	var wg sync.WaitGroup
	for i, off := range offsets {
		wg.Add(1)
		pool.Submit(func() {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			section := io.NewSectionReader(ra, off, math.MaxInt64-off)
			results[i], errs[i] = decodeModel(section, off, f, opts)
		})
	}
	wg.Wait()

	var meshes []*mesh.Mesh
	for i := range offsets {
		if errs[i] != nil {
			return meshes, errs[i]
		}
		meshes = append(meshes, results[i]...)
	}
	return meshes, nil
}

// Load reads the directory at the start of rs and decodes every model it
// lists. With more than one worker and a stream that supports ReadAt, models
// are decoded concurrently.
func Load(ctx context.Context, rs io.ReadSeeker, f formats.Format, workers int, opts formats.Options) ([]*mesh.Mesh, error) {
	offsets, err := ReadOffsets(rs)
	if err != nil {
		return nil, err
	}
	return decodeAll(ctx, rs, offsets, f, workers, opts)
}

func decodeAll(ctx context.Context, rs io.ReadSeeker, offsets []int64, f formats.Format, workers int, opts formats.Options) ([]*mesh.Mesh, error) {
	if len(offsets) == 0 {
		return nil, ErrNoModels
	}
	if ra, ok := rs.(io.ReaderAt); ok && workers > 1 {
		return DecodeModelsParallel(ctx, ra, offsets, f, workers, opts)
	}
	return DecodeModels(ctx, rs, offsets, f, opts)
}

// decodeModel decodes the model at the current position of rs, which sits
// at absolute offset off of the container.
func decodeModel(rs io.ReadSeeker, off int64, f formats.Format, opts formats.Options) ([]*mesh.Mesh, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if f == formats.FormatUnknown {
		start, err := rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		var prefix [2]byte
		if _, err := io.ReadFull(rs, prefix[:]); err != nil {
			return nil, fmt.Errorf("model at 0x%X: reading magic: %w", off, err)
		}
		if _, err := rs.Seek(start, io.SeekStart); err != nil {
			return nil, err
		}
		if f = formats.Sniff(prefix[:]); f == formats.FormatUnknown {
			return nil, fmt.Errorf("model at 0x%X: %w", off, formats.ErrUnknownFormat)
		}
	}

	modelOpts := opts
	if opts.Name != "" {
		modelOpts.Name = fmt.Sprintf("%s_%04X", opts.Name, off)
	} else {
		modelOpts.Name = fmt.Sprintf("%04X", off)
	}

	meshes, err := formats.Decode(rs, f, modelOpts)
	if err != nil {
		return nil, fmt.Errorf("model at 0x%X: %w", off, err)
	}
	log.Debug("decoded model",
		zap.String("name", modelOpts.Name), zap.Int64("offset", off), zap.Stringer("format", f))
	return meshes, nil
}
