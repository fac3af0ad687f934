package ruledb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

const (
	versionDir       = "php-changes"
	platformDir      = "platforms"
	platformFileName = "deprecated-functions"
)

// ruleExtensions are tried in order when locating a rule file.
var ruleExtensions = []string{".json", ".yaml", ".yml"}

// On-disk shapes. Both JSON and YAML rule files decode into these.

type rawVersionFile struct {
	RemovedFunctions   []rawRule `json:"removed_functions" yaml:"removed_functions"`
	DeprecatedFeatures []rawRule `json:"deprecated_features" yaml:"deprecated_features"`
	BehaviorChanges    []rawRule `json:"behavior_changes" yaml:"behavior_changes"`
	NewFeatures        []rawRule `json:"new_features" yaml:"new_features"`
}

type rawPlatformFile struct {
	Functions []rawRule `json:"functions" yaml:"functions"`
}

type rawRule struct {
	Function        string `json:"function" yaml:"function"`
	Feature         string `json:"feature" yaml:"feature"`
	Title           string `json:"title" yaml:"title"`
	Regex           string `json:"regex" yaml:"regex"`
	Severity        string `json:"severity" yaml:"severity"`
	Description     string `json:"description" yaml:"description"`
	Replacement     string `json:"replacement" yaml:"replacement"`
	Recommendation  string `json:"recommendation" yaml:"recommendation"`
	ExampleOld      string `json:"example_old" yaml:"example_old"`
	ExampleNew      string `json:"example_new" yaml:"example_new"`
	DeprecatedSince string `json:"deprecated_since" yaml:"deprecated_since"`
	RemovedIn       string `json:"removed_in" yaml:"removed_in"`
}

// hopPath returns the first existing rule file for the from->to hop, or ""
// when none exists.
func hopPath(root, from, to string) string {
	return findRuleFile(filepath.Join(root, versionDir, from+"-to-"+to))
}

func platformPath(root, platform string) string {
	return findRuleFile(filepath.Join(root, platformDir, platform, platformFileName))
}

func findRuleFile(base string) string {
	for _, ext := range ruleExtensions {
		p := base + ext
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// readRuleFile decodes path into v by extension and returns the blake2b-256
// digest of the raw bytes.
func readRuleFile(path string, v interface{}) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	sum := blake2b.Sum256(data)
	return sum[:], nil
}

func (f *rawVersionFile) build(from, to string) *VersionRuleSet {
	set := &VersionRuleSet{From: from, To: to}
	for _, r := range f.RemovedFunctions {
		if r.Function == "" {
			continue
		}
		set.RemovedFunctions = append(set.RemovedFunctions, RemovedFunctionRule{
			Function:    r.Function,
			Severity:    severityOr(r.Severity, SeverityCritical),
			Description: r.Description,
			Replacement: r.Replacement,
			ExampleOld:  r.ExampleOld,
			ExampleNew:  r.ExampleNew,
			Detector:    NewDetector(r.Regex),
		})
	}
	for _, r := range f.DeprecatedFeatures {
		set.DeprecatedFeatures = append(set.DeprecatedFeatures, DeprecatedFeatureRule{
			Title:       firstNonEmpty(r.Title, "Deprecated feature"),
			Severity:    severityOr(r.Severity, SeverityHigh),
			Description: r.Description,
			Replacement: r.Replacement,
			ExampleOld:  r.ExampleOld,
			ExampleNew:  r.ExampleNew,
			Detector:    NewDetector(r.Regex),
		})
	}
	for _, r := range f.BehaviorChanges {
		set.BehaviorChanges = append(set.BehaviorChanges, BehaviorChangeRule{
			Title:          firstNonEmpty(r.Title, "Behavior change"),
			Severity:       severityOr(r.Severity, SeverityMedium),
			Description:    r.Description,
			Recommendation: r.Recommendation,
			Detector:       NewDetector(r.Regex),
		})
	}
	for _, r := range f.NewFeatures {
		set.NewFeatures = append(set.NewFeatures, NewFeature{
			Feature:     firstNonEmpty(r.Feature, r.Title),
			Description: r.Description,
		})
	}
	return set
}

func (f *rawPlatformFile) build(platform string) *PlatformRuleSet {
	set := &PlatformRuleSet{Platform: platform}
	for _, r := range f.Functions {
		if r.Function == "" {
			continue
		}
		set.Functions = append(set.Functions, PlatformDeprecatedRule{
			Function:        r.Function,
			Severity:        severityOr(r.Severity, SeverityHigh),
			DeprecatedSince: r.DeprecatedSince,
			RemovedIn:       r.RemovedIn,
			Replacement:     r.Replacement,
			ExampleOld:      r.ExampleOld,
			ExampleNew:      r.ExampleNew,
			Detector:        NewDetector(r.Regex),
		})
	}
	return set
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
