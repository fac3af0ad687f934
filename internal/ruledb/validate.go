package ruledb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Problem is one defect found by Validate.
type Problem struct {
	File    string `json:"file"`
	Rule    string `json:"rule,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Rule == "" {
		return fmt.Sprintf("%s: %s", p.File, p.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", p.File, p.Rule, p.Message)
}

// Validate checks every adjacent hop file, every platform file under root and
// every platform declared in the manifest, and reports all problems found. It never stops at the first defect.
func Validate(root string, versions []string) []Problem {
	var problems []Problem

	for i := 0; i+1 < len(versions); i++ {
		from, to := versions[i], versions[i+1]
		path := hopPath(root, from, to)
		if path == "" {
			problems = append(problems, Problem{
				File:    filepath.Join(versionDir, from+"-to-"+to+".json"),
				Message: "rule file missing",
			})
			continue
		}
		rel := relTo(root, path)

		var raw rawVersionFile
		if _, err := readRuleFile(path, &raw); err != nil {
			problems = append(problems, Problem{File: rel, Message: err.Error()})
			continue
		}
		problems = append(problems, checkVersionFile(rel, &raw)...)
	}

	entries, _ := os.ReadDir(filepath.Join(root, platformDir))
	seen := make(map[string]bool, len(entries))
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			seen[e.Name()] = true
			names = append(names, e.Name())
		}
	}

	// Platforms the manifest declares must ship a rule file too.
	manifest, err := LoadManifest(root)
	if err != nil {
		problems = append(problems, Problem{File: ManifestFile, Message: err.Error()})
	} else if manifest != nil {
		for _, name := range manifest.Platforms {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := platformPath(root, name)
		if path == "" {
			problems = append(problems, Problem{
				File:    filepath.Join(platformDir, name),
				Message: "no " + platformFileName + " rule file",
			})
			continue
		}
		rel := relTo(root, path)

		var raw rawPlatformFile
		if _, err := readRuleFile(path, &raw); err != nil {
			problems = append(problems, Problem{File: rel, Message: err.Error()})
			continue
		}
		for i, r := range raw.Functions {
			id := ruleLabel("functions", i, r.Function)
			if r.Function == "" {
				problems = append(problems, Problem{File: rel, Rule: id, Message: "missing function"})
			}
			if r.Regex == "" {
				problems = append(problems, Problem{File: rel, Rule: id, Message: "missing regex, rule is inert"})
			}
			problems = append(problems, checkRule(rel, id, r)...)
		}
	}

	return problems
}

func checkVersionFile(rel string, raw *rawVersionFile) []Problem {
	var problems []Problem
	for i, r := range raw.RemovedFunctions {
		id := ruleLabel("removed_functions", i, r.Function)
		if r.Function == "" {
			problems = append(problems, Problem{File: rel, Rule: id, Message: "missing function"})
		}
		problems = append(problems, checkRule(rel, id, r)...)
	}
	for i, r := range raw.DeprecatedFeatures {
		id := ruleLabel("deprecated_features", i, r.Title)
		if r.Regex == "" {
			problems = append(problems, Problem{File: rel, Rule: id, Message: "missing regex, rule is inert"})
		}
		problems = append(problems, checkRule(rel, id, r)...)
	}
	for i, r := range raw.BehaviorChanges {
		id := ruleLabel("behavior_changes", i, r.Title)
		if r.Regex == "" {
			problems = append(problems, Problem{File: rel, Rule: id, Message: "missing regex, rule is inert"})
		}
		problems = append(problems, checkRule(rel, id, r)...)
	}
	return problems
}

func checkRule(rel, id string, r rawRule) []Problem {
	var problems []Problem
	if r.Severity != "" {
		if _, ok := ParseSeverity(r.Severity); !ok {
			problems = append(problems, Problem{File: rel, Rule: id, Message: fmt.Sprintf("unknown severity %q", r.Severity)})
		}
	}
	if d := NewDetector(r.Regex); d.Err != nil {
		problems = append(problems, Problem{File: rel, Rule: id, Message: "invalid regex: " + d.Err.Error()})
	}
	return problems
}

func ruleLabel(section string, i int, name string) string {
	if name == "" {
		return fmt.Sprintf("%s[%d]", section, i)
	}
	return fmt.Sprintf("%s[%d] %s", section, i, name)
}

func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
