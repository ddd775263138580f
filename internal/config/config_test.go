package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/td5kit/pkg/formats"
	"github.com/Faultbox/td5kit/pkg/texpack"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if cfg.Import.WeldTolerance != formats.DefaultWeldTolerance {
		t.Errorf("expected weld tolerance %v, got %v", formats.DefaultWeldTolerance, cfg.Import.WeldTolerance)
	}
	if cfg.Import.Workers != 0 {
		t.Errorf("expected sequential decoding by default, got %d workers", cfg.Import.Workers)
	}
	if f, err := cfg.TextureFormat(); err != nil || f != texpack.PNG {
		t.Errorf("expected png texture format, got %q (%v)", f, err)
	}
	if f, err := cfg.LevelFormat(); err != nil || f != formats.FormatUnknown {
		t.Errorf("expected sniffed level format, got %v (%v)", f, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	yamlContent := `
logging:
  level: "debug"
  log_file: "td5kit.log"

import:
  weld_tolerance: 0.5
  workers: 4

export:
  texture_format: "webp"

level:
  format: "td6"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "td5kit.log" {
		t.Errorf("expected log file 'td5kit.log', got %s", cfg.Logging.LogFile)
	}
	if cfg.Import.WeldTolerance != 0.5 {
		t.Errorf("expected weld tolerance 0.5, got %v", cfg.Import.WeldTolerance)
	}
	if cfg.Import.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Import.Workers)
	}
	if f, _ := cfg.TextureFormat(); f != texpack.WebP {
		t.Errorf("expected webp, got %q", f)
	}
	if f, _ := cfg.LevelFormat(); f != formats.FormatTD6 {
		t.Errorf("expected td6, got %v", f)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
import:
  workers: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/td5kit.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"unknown texture format", func(c *Config) { c.Export.TextureFormat = "gif" }, texpack.ErrUnknownImageFormat},
		{"unknown level format", func(c *Config) { c.Level.Format = "rsm" }, formats.ErrUnknownFormat},
		{"negative workers", func(c *Config) { c.Import.Workers = -2 }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDecodeOptions(t *testing.T) {
	cfg := Default()
	cfg.Import.WeldTolerance = -1

	opts := cfg.DecodeOptions("car", nil)
	if opts.Name != "car" || opts.WeldTolerance != -1 {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, FileName)
	if err := os.WriteFile(configPath, []byte("import:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Errorf("expected to find %s in current directory", FileName)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "workers flag",
			setup: func() { *flagWorkers = 8 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Import.Workers != 8 {
					t.Errorf("expected 8 workers, got %d", cfg.Import.Workers)
				}
			},
			teardown: func() { *flagWorkers = -1 },
		},
		{
			name:  "unset workers flag keeps config",
			setup: func() {},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Import.Workers != 0 {
					t.Errorf("expected default workers, got %d", cfg.Import.Workers)
				}
			},
			teardown: func() {},
		},
		{
			name:  "texture format flag",
			setup: func() { *flagTextureFormat = "tga" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Export.TextureFormat != "tga" {
					t.Errorf("expected tga, got %s", cfg.Export.TextureFormat)
				}
			},
			teardown: func() { *flagTextureFormat = "" },
		},
		{
			name:  "weld flag",
			setup: func() { *flagWeld = -1 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Import.WeldTolerance != -1 {
					t.Errorf("expected exact welding, got %v", cfg.Import.WeldTolerance)
				}
			},
			teardown: func() { *flagWeld = 0 },
		},
		{
			name: "log file and level format flags",
			setup: func() {
				*flagLogFile = "out.log"
				*flagLevelFormat = "td5"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.LogFile != "out.log" || cfg.Level.Format != "td5" {
					t.Errorf("unexpected config %+v", cfg)
				}
			},
			teardown: func() {
				*flagLogFile = ""
				*flagLevelFormat = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, FileName)

	yamlContent := `
import:
  workers: 2
export:
  texture_format: bmp
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWorkers = 6
	defer func() {
		*flagConfig = ""
		*flagWorkers = -1
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Import.Workers != 6 {
		t.Errorf("expected 6 workers from flag, got %d", cfg.Import.Workers)
	}
	if cfg.Export.TextureFormat != "bmp" {
		t.Errorf("expected bmp from file, got %s", cfg.Export.TextureFormat)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(configPath, []byte("export:\n  texture_format: gif\n"), 0644); err != nil {
		t.Fatal(err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); !errors.Is(err, texpack.ErrUnknownImageFormat) {
		t.Errorf("expected ErrUnknownImageFormat, got %v", err)
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := Default()
	cfg.Import.Workers = 3
	cfg.Export.TextureFormat = "tga"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("reloaded config %+v differs from saved %+v", loaded, cfg)
	}
}
