package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/pagelister/internal/config"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err = os.WriteFile(path, []byte(data), 0o600)
	if err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func Test_Load_Returns_Defaults_When_No_Files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, err := config.Load(config.LoadInput{WorkDirOverride: dir, Env: map[string]string{}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := config.Config{
		DB:           filepath.Join(".dpl", "pages.sqlite"),
		Listen:       "127.0.0.1:8080",
		AdminURL:     "/",
		EffectiveCwd: dir,
		DBAbs:        filepath.Join(dir, ".dpl", "pages.sqlite"),
	}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

// Contract: project beats global, explicit -c replaces the project file, CLI beats both.
func Test_Load_Applies_Precedence_When_All_Sources_Present(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := t.TempDir()

	writeFile(t, filepath.Join(xdg, "dpl", "config.json"), `{
		// global
		"db": "global.sqlite",
		"listen": ":9000",
		"admin_url": "/cms/",
	}`)
	writeFile(t, filepath.Join(dir, ".dpl.json"), `{"db": "project.sqlite"}`)

	env := map[string]string{"XDG_CONFIG_HOME": xdg}

	cfg, err := config.Load(config.LoadInput{WorkDirOverride: dir, Env: env})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DBAbs != filepath.Join(dir, "project.sqlite") || cfg.Listen != ":9000" || cfg.AdminURL != "/cms/" {
		t.Fatalf("cfg = %+v", cfg)
	}

	if cfg.Sources.Global == "" || cfg.Sources.Project != filepath.Join(dir, ".dpl.json") {
		t.Fatalf("sources = %+v", cfg.Sources)
	}

	writeFile(t, filepath.Join(dir, "other.json"), `{"listen": ":7000"}`)

	cfg, err = config.Load(config.LoadInput{
		WorkDirOverride: dir,
		ConfigPath:      "other.json",
		DBOverride:      "/abs/cli.sqlite",
		Env:             env,
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.DBAbs != "/abs/cli.sqlite" || cfg.Listen != ":7000" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func Test_Load_Uses_Home_When_XDG_Unset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	home := t.TempDir()

	writeFile(t, filepath.Join(home, ".config", "dpl", "config.json"), `{"listen": ":1234"}`)

	cfg, err := config.Load(config.LoadInput{WorkDirOverride: dir, Env: map[string]string{"HOME": home}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Listen != ":1234" {
		t.Fatalf("listen = %q", cfg.Listen)
	}
}

func Test_Load_Fails_When_Config_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		input   config.LoadInput
		wantErr error
	}{
		{name: "explicit file missing", input: config.LoadInput{ConfigPath: "nope.json"}, wantErr: config.ErrConfigFileNotFound},
		{name: "malformed", file: `{invalid`, wantErr: config.ErrConfigInvalid},
		{name: "explicit empty db", file: `{"db": ""}`, wantErr: config.ErrDBEmpty},
		{name: "explicit empty listen", file: `{"listen": ""}`, wantErr: config.ErrListenEmpty},
		{name: "relative admin url", file: `{"admin_url": "cms"}`, wantErr: config.ErrAdminURLInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tc.file != "" {
				writeFile(t, filepath.Join(dir, config.FileName), tc.file)
			}

			input := tc.input
			input.WorkDirOverride = dir
			input.Env = map[string]string{}

			_, err := config.Load(input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
