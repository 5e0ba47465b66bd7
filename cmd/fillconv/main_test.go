package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/fillconv/internal/config"
	"github.com/Faultbox/fillconv/internal/magick"
	"github.com/Faultbox/fillconv/internal/pipeline"
	"github.com/Faultbox/fillconv/internal/texture"
	"github.com/Faultbox/fillconv/pkg/fillplane"
)

// isolate keeps config discovery away from the developer's real files.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Setenv("APPDATA", filepath.Join(dir, "AppData"))
	t.Setenv(config.EnvConfig, "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"usage", fmt.Errorf("%w: bad flag", ErrUsage), 2},
		{"no fillplane name", fillplane.ErrNoFillplaneName, 2},
		{"unsupported", &fillplane.UnsupportedError{Name: "barn", Extension: ".tga"}, 3},
		{"missing tool", magick.ErrToolMissing, 1},
		{"step failure", &pipeline.StepError{Step: pipeline.StepDeriveHeight, Err: errors.New("boom")}, 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("%s: expected exit code %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestHelpRequested(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"/h"}, true},
		{[]string{"a_diffuse.dds", "/h"}, true},
		{[]string{"/h", "a_diffuse.dds"}, true},
		{[]string{"a_diffuse.dds", "a_normal.dds"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := helpRequested(tt.args); got != tt.want {
			t.Errorf("helpRequested(%v): expected %v, got %v", tt.args, tt.want, got)
		}
	}
}

func TestHelpInAnyPosition(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{
		{"--help"},
		{"-h", "a_diffuse.dds"},
		{"a_diffuse.dds", "-h"},
		{"a_diffuse.dds", "a_normal.dds", "--help"},
	} {
		out, err := execute(t, args...)
		if err != nil {
			t.Errorf("%v: expected help without error, got %v", args, err)
		}
		if !strings.Contains(out, "Mode1") {
			t.Errorf("%v: expected usage text, got %q", args, out)
		}
	}
}

func TestVersion(t *testing.T) {
	isolate(t)
	out, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(out) != "fillconv version 1.1" {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestArgumentCount(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{
		{},
		{"barn_diffuse.dds"},
		{"barn_diffuse.dds", "barn_normal.dds", "extra"},
	} {
		_, err := execute(t, args...)
		if exitCode(err) != 2 {
			t.Errorf("%v: expected usage exit, got %v", args, err)
		}
	}
}

func TestUnknownFlag(t *testing.T) {
	isolate(t)
	_, err := execute(t, "--bogus", "a_diffuse.dds", "a_normal.dds")
	if !errors.Is(err, ErrUsage) {
		t.Errorf("expected ErrUsage, got %v", err)
	}
}

func TestMissingDiffuseMarker(t *testing.T) {
	dir := isolate(t)
	_, err := execute(t, "barn.dds", "barn_normal.dds")
	if !errors.Is(err, fillplane.ErrNoFillplaneName) {
		t.Fatalf("expected ErrNoFillplaneName, got %v", err)
	}
	for _, name := range []string{"texture_convert_tmp", "converted"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("expected %s not to be created", name)
		}
	}
}

func TestUnsupportedExtension(t *testing.T) {
	dir := isolate(t)
	_, err := execute(t, "barn_diffuse.tga", "barn_normal.tga")
	if exitCode(err) != 3 {
		t.Errorf("expected exit code 3, got %v", err)
	}
	for _, name := range []string{"texture_convert_tmp", "converted"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("expected %s not to be created", name)
		}
	}
}

func TestSaveConfig(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out", "fillconv.yaml")

	out, err := execute(t, "--save-config", path, "--backend", "magick")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("expected confirmation, got %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "name: magick") {
		t.Errorf("expected backend override in saved config:\n%s", data)
	}
}

func TestRunPNGEndToEnd(t *testing.T) {
	dir := isolate(t)

	cfgPath := filepath.Join(dir, "small.yaml")
	cfgData := "texture:\n  canvas_size: 16\n  height_size: 8\n  blur_sigma: 1\n  gamma: 2.0\n"
	if err := os.WriteFile(cfgPath, []byte(cfgData), 0644); err != nil {
		t.Fatal(err)
	}

	in := filepath.Join(dir, "textures")
	diffuse := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	normal := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			diffuse.SetNRGBA(x, y, color.NRGBA{uint8(x * 16), uint8(y * 16), 90, 255})
			normal.SetNRGBA(x, y, color.NRGBA{128, 128, 255, 255})
		}
	}
	if err := texture.Save(filepath.Join(in, "water_diffuse.png"), diffuse, texture.ColorRGBA); err != nil {
		t.Fatal(err)
	}
	if err := texture.Save(filepath.Join(in, "water_normal.png"), normal, texture.ColorRGB); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", cfgPath,
		filepath.Join(in, "water_diffuse.png"), filepath.Join(in, "water_normal.png"))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out, doneMessage) {
		t.Errorf("expected completion message, got %q", out)
	}

	for _, kind := range []string{"diffuse", "normal", "height"} {
		p := filepath.Join(in, "converted", "water_"+kind+".png")
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "texture_convert_tmp", "water_height.png")); err != nil {
		t.Errorf("expected intermediate height to be kept: %v", err)
	}
}
