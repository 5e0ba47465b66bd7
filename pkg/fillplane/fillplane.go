// Package fillplane derives fillplane names, input modes and file layout for a
// texture conversion job.
package fillplane

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// DiffuseMarker is the token a diffuse file name must end with (before the extension).
const DiffuseMarker = "_diffuse"

// Errors
var (
	ErrNoFillplaneName  = errors.New("fillplane name could not be determined; the diffuse file must end with '_diffuse'")
	ErrUnsupportedInput = errors.New("only PNG or DDS files are supported")
)

// Mode is the input generation detected from the file extension.
type Mode int

const (
	ModeUnsupported Mode = iota
	ModeDDS              // FS22 512x512 DDS textures, upscaled first
	ModePNG              // 1024x1024 PNG textures, used as-is
)

func (m Mode) String() string {
	switch m {
	case ModeDDS:
		return "dds"
	case ModePNG:
		return "png"
	default:
		return "unsupported"
	}
}

// DetectMode maps a file extension (with or without the dot) to a Mode.
func DetectMode(ext string) Mode {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "dds":
		return ModeDDS
	case "png":
		return ModePNG
	default:
		return ModeUnsupported
	}
}

// ParseName extracts the fillplane name and extension from a diffuse file path.
// "barn_diffuse.dds" yields ("barn", ".dds").
func ParseName(diffusePath string) (name, ext string, err error) {
	base := filepath.Base(diffusePath)
	ext = filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if !strings.HasSuffix(strings.ToLower(stem), DiffuseMarker) {
		return "", ext, ErrNoFillplaneName
	}
	name = stem[:len(stem)-len(DiffuseMarker)]
	if name == "" {
		return "", ext, ErrNoFillplaneName
	}
	return name, ext, nil
}

// Args are the parsed positional arguments of one conversion run.
type Args struct {
	Diffuse string
	Normal  string
}

// Layout names the directories a job writes to.
type Layout struct {
	TmpDir       string // Intermediates, relative to the working directory
	OutputSubdir string // Created next to the diffuse input
}

// UnsupportedError carries the diagnostics printed for inputs the converter skips.
type UnsupportedError struct {
	Name      string
	Extension string
	Reason    string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s (fill plane %q, extension %q)", ErrUnsupportedInput, e.Reason, e.Name, e.Extension)
}

func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupportedInput
}

// Job is a fully resolved conversion of one fillplane.
type Job struct {
	Name    string
	Mode    Mode
	Diffuse string
	Normal  string
	TmpDir  string
	OutDir  string
}

// NewJob validates args and resolves every path the pipeline touches.
// It performs no filesystem access.
func NewJob(args Args, layout Layout) (*Job, error) {
	name, ext, err := ParseName(args.Diffuse)
	if err != nil {
		return nil, err
	}

	mode := DetectMode(ext)
	if mode == ModeUnsupported {
		return nil, &UnsupportedError{Name: name, Extension: ext, Reason: "unknown extension"}
	}
	if normalExt := filepath.Ext(args.Normal); !strings.EqualFold(normalExt, ext) {
		return nil, &UnsupportedError{
			Name:      name,
			Extension: normalExt,
			Reason:    fmt.Sprintf("normal map extension does not match diffuse %q", ext),
		}
	}

	return &Job{
		Name:    name,
		Mode:    mode,
		Diffuse: args.Diffuse,
		Normal:  args.Normal,
		TmpDir:  layout.TmpDir,
		OutDir:  filepath.Join(filepath.Dir(args.Diffuse), layout.OutputSubdir),
	}, nil
}

// TmpPath returns the intermediate file for the given map kind ("diffuse", "normal", "height").
func (j *Job) TmpPath(kind string) string {
	return filepath.Join(j.TmpDir, j.fileName(kind))
}

// OutPath returns the final output file for the given map kind.
func (j *Job) OutPath(kind string) string {
	return filepath.Join(j.OutDir, j.fileName(kind))
}

func (j *Job) fileName(kind string) string {
	return j.Name + "_" + kind + ".png"
}
