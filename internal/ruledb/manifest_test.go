package ruledb

import (
	"testing"

	pmaerrors "pma/internal/errors"
	"pma/internal/testutil"
)

func TestLoadManifest(t *testing.T) {
	fx := testutil.LoadFixture(t, "ruledb")

	m, err := LoadManifest(fx.Root)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if m.Schema != 1 || len(m.Versions) != 3 || m.Versions[2] != "8.1" {
		t.Errorf("manifest = %+v", m)
	}
	if len(m.Platforms) != 1 || m.Platforms[0] != "moodle" {
		t.Errorf("Platforms = %v", m.Platforms)
	}
}

func TestLoadManifest_Absent(t *testing.T) {
	m, err := LoadManifest(t.TempDir())
	if err != nil || m != nil {
		t.Errorf("LoadManifest(empty) = %v, %v; want nil, nil", m, err)
	}
}

func TestLoadManifest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"duplicate version", `versions = ["7.4", "8.0", "7.4"]`},
		{"empty version", `versions = ["7.4", ""]`},
		{"bad toml", `versions = [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			testutil.WriteFiles(t, root, map[string]string{ManifestFile: tt.content})

			_, err := LoadManifest(root)
			if pmaerrors.CodeOf(err) != pmaerrors.RulesetInvalid {
				t.Errorf("error = %v, want %s", err, pmaerrors.RulesetInvalid)
			}
		})
	}
}

func TestNormalizeVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"7.4", "7.4", false},
		{"php7.4.33", "7.4", false},
		{"PHP 8.1", "8.1", false},
		{"v8.2.0", "8.2", false},
		{"8", "8.0", false},
		{" 8.3 ", "8.3", false},
		{"latest", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeVersion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeVersion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NormalizeVersion(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
