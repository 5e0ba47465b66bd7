package fillplane

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestParseName(t *testing.T) {
	tests := []struct {
		path     string
		wantName string
		wantExt  string
		wantErr  bool
	}{
		{"foo_diffuse.dds", "foo", ".dds", false},
		{"textures/barn_diffuse.png", "barn", ".png", false},
		{"wheat_chaff_diffuse.DDS", "wheat_chaff", ".DDS", false},
		{"Grass_Diffuse.png", "Grass", ".png", false},
		{"foo.dds", "", ".dds", true},
		{"_diffuse.dds", "", ".dds", true},
		{"foo_diffuse_old.dds", "", ".dds", true},
		{"foo_normal.dds", "", ".dds", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			name, ext, err := ParseName(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrNoFillplaneName) {
					t.Fatalf("expected ErrNoFillplaneName, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tt.wantName {
				t.Errorf("expected name %q, got %q", tt.wantName, name)
			}
			if ext != tt.wantExt {
				t.Errorf("expected ext %q, got %q", tt.wantExt, ext)
			}
		})
	}
}

func TestDetectMode(t *testing.T) {
	tests := []struct {
		ext  string
		want Mode
	}{
		{".dds", ModeDDS},
		{".DDS", ModeDDS},
		{"png", ModePNG},
		{".Png", ModePNG},
		{".tga", ModeUnsupported},
		{"", ModeUnsupported},
	}
	for _, tt := range tests {
		if got := DetectMode(tt.ext); got != tt.want {
			t.Errorf("DetectMode(%q) = %s, want %s", tt.ext, got, tt.want)
		}
	}
}

func TestNewJob(t *testing.T) {
	layout := Layout{TmpDir: "texture_convert_tmp", OutputSubdir: "converted"}
	args := Args{
		Diffuse: filepath.Join("mods", "barn_diffuse.dds"),
		Normal:  filepath.Join("mods", "barn_normal.dds"),
	}

	job, err := NewJob(args, layout)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	if job.Name != "barn" {
		t.Errorf("expected name barn, got %s", job.Name)
	}
	if job.Mode != ModeDDS {
		t.Errorf("expected DDS mode, got %s", job.Mode)
	}
	if want := filepath.Join("mods", "converted"); job.OutDir != want {
		t.Errorf("expected out dir %s, got %s", want, job.OutDir)
	}
	if want := filepath.Join("texture_convert_tmp", "barn_height.png"); job.TmpPath("height") != want {
		t.Errorf("expected tmp path %s, got %s", want, job.TmpPath("height"))
	}
	if want := filepath.Join("mods", "converted", "barn_normal.png"); job.OutPath("normal") != want {
		t.Errorf("expected out path %s, got %s", want, job.OutPath("normal"))
	}
}

func TestNewJobErrors(t *testing.T) {
	layout := Layout{TmpDir: "tmp", OutputSubdir: "converted"}

	tests := []struct {
		name string
		args Args
		want error
	}{
		{"missing marker", Args{"barn.dds", "barn_normal.dds"}, ErrNoFillplaneName},
		{"unknown extension", Args{"barn_diffuse.tga", "barn_normal.tga"}, ErrUnsupportedInput},
		{"mixed extensions", Args{"barn_diffuse.dds", "barn_normal.png"}, ErrUnsupportedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJob(tt.args, layout)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUnsupportedErrorDiagnostics(t *testing.T) {
	_, err := NewJob(Args{"barn_diffuse.jpg", "barn_normal.jpg"}, Layout{TmpDir: "t", OutputSubdir: "c"})

	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected *UnsupportedError, got %T", err)
	}
	if unsupported.Name != "barn" {
		t.Errorf("expected fill plane name barn, got %s", unsupported.Name)
	}
	if unsupported.Extension != ".jpg" {
		t.Errorf("expected extension .jpg, got %s", unsupported.Extension)
	}
}
