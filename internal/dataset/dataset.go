// Package dataset turns image files into evaluation inputs.
//
// A directory is read in one of two layouts:
//
//	dir/positive/*.jpg, dir/negative/*.jpg   ground truth from the folder name
//	dir/*.jpg [+ dir/labels.csv]             optional "filename,label" rows
//
// Files with other extensions are skipped.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vlmeval/internal/common/fsutil"
	"vlmeval/pkg/types"
)

// LabelsFile is the optional ground-truth file of a flat directory.
const LabelsFile = "labels.csv"

var allowedExt = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "bmp": {}, "webp": {},
}

// ErrUnsupportedExtension is returned for files that are not accepted images.
var ErrUnsupportedExtension = errors.New("unsupported image extension")

// Ext returns the lowercase extension of name without the dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// AllowedExtension reports whether name has an accepted image extension.
func AllowedExtension(name string) bool {
	_, ok := allowedExt[Ext(name)]
	return ok
}

// NewImage validates an in-memory upload.
func NewImage(name string, data []byte) (types.Image, error) {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if !AllowedExtension(name) {
		return types.Image{}, fmt.Errorf("%w: %q", ErrUnsupportedExtension, name)
	}
	if len(data) == 0 {
		return types.Image{}, fmt.Errorf("image %q is empty", name)
	}
	return types.Image{Name: name, Ext: Ext(name), Data: data}, nil
}

// Dataset is a set of images with optional ground truth.
type Dataset struct {
	Root   string
	Images []types.Image
	// Truth maps image name to types.TruthPositive or types.TruthNegative.
	Truth map[string]string
}

// Options bound what LoadDir reads.
type Options struct {
	// MaxFileBytes rejects larger files. Zero means unlimited.
	MaxFileBytes int64
	// Limit stops after this many images. Zero means all.
	Limit int
}

// LoadDir reads a dataset directory. Image names are paths relative to dir.
func LoadDir(dir string, opt Options) (Dataset, error) {
	abs, err := fsutil.ResolveDir(dir)
	if err != nil {
		return Dataset{}, err
	}
	ds := Dataset{Root: abs, Truth: map[string]string{}}

	split := false
	for _, class := range []string{types.TruthPositive, types.TruthNegative} {
		sub := filepath.Join(abs, class)
		if fi, err := os.Stat(sub); err == nil && fi.IsDir() {
			split = true
			if err := ds.readDir(sub, class+"/", class, opt); err != nil {
				return Dataset{}, err
			}
		}
	}
	if split {
		return ds, nil
	}

	if err := ds.readDir(abs, "", "", opt); err != nil {
		return Dataset{}, err
	}
	f, err := os.Open(filepath.Join(abs, LabelsFile))
	if errors.Is(err, os.ErrNotExist) {
		return ds, nil
	}
	if err != nil {
		return Dataset{}, err
	}
	defer f.Close()
	labels, err := ReadLabels(f)
	if err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", LabelsFile, err)
	}
	for _, img := range ds.Images {
		if l, ok := labels[img.Name]; ok {
			ds.Truth[img.Name] = l
		}
	}
	return ds, nil
}

func (ds *Dataset) readDir(dir, prefix, class string, opt Options) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if opt.Limit > 0 && len(ds.Images) >= opt.Limit {
			return nil
		}
		if e.IsDir() || !AllowedExtension(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if opt.MaxFileBytes > 0 {
			if fi, err := e.Info(); err == nil && fi.Size() > opt.MaxFileBytes {
				return fmt.Errorf("%s: %d bytes exceeds limit of %d", p, fi.Size(), opt.MaxFileBytes)
			}
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		name := prefix + e.Name()
		ds.Images = append(ds.Images, types.Image{Name: name, Ext: Ext(e.Name()), Data: data})
		if class != "" {
			ds.Truth[name] = class
		}
	}
	return nil
}

// ReadLabels parses "filename,label" rows. A header row is skipped; labels
// other than positive/negative are rejected.
func ReadLabels(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	out := map[string]string{}
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: want filename,label", line)
		}
		name := strings.TrimSpace(rec[0])
		label := NormalizeTruth(rec[1])
		if label == "" {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: label %q is neither positive nor negative", line, rec[1])
		}
		out[name] = label
	}
}

// NormalizeTruth maps common spellings onto positive/negative, "" otherwise.
func NormalizeTruth(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "pos", "1", "true", "yes":
		return types.TruthPositive
	case "negative", "neg", "0", "false", "no":
		return types.TruthNegative
	default:
		return ""
	}
}
