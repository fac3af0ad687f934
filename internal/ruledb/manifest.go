package ruledb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"

	pmaerrors "pma/internal/errors"
)

// ManifestFile is the optional database manifest at the database root.
const ManifestFile = "manifest.toml"

// Manifest declares the version ordering and platforms a rule database
// ships. When present its versions override the configured ordering.
//
//	schema = 1
//	versions = ["7.4", "8.0", "8.1"]
//	platforms = ["moodle", "wordpress"]
type Manifest struct {
	Schema    int      `toml:"schema"`
	Versions  []string `toml:"versions"`
	Platforms []string `toml:"platforms"`
}

// LoadManifest reads <root>/manifest.toml. It returns (nil, nil) when the
// file does not exist.
func LoadManifest(root string) (*Manifest, error) {
	path := filepath.Join(root, ManifestFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, pmaerrors.New(pmaerrors.RulesetInvalid, "invalid rule database manifest", err)
	}

	seen := make(map[string]bool, len(m.Versions))
	for _, v := range m.Versions {
		if v == "" {
			return nil, pmaerrors.New(pmaerrors.RulesetInvalid, "manifest lists an empty version", nil)
		}
		if seen[v] {
			return nil, pmaerrors.Newf(pmaerrors.RulesetInvalid, "manifest lists version %s twice", v)
		}
		seen[v] = true
	}
	return &m, nil
}

// NormalizeVersion reduces a user supplied version to major.minor, so
// "php7.4.33", "v8.1" and "8" become "7.4", "8.1" and "8.0".
func NormalizeVersion(s string) (string, error) {
	v := strings.TrimSpace(strings.ToLower(s))
	v = strings.TrimPrefix(v, "php")
	v = strings.TrimPrefix(v, "v")
	v = strings.TrimSpace(v)

	parsed, err := semver.NewVersion(v)
	if err != nil {
		return "", pmaerrors.New(pmaerrors.VersionRangeInvalid, fmt.Sprintf("cannot parse version %q", s), err)
	}
	return fmt.Sprintf("%d.%d", parsed.Major(), parsed.Minor()), nil
}
