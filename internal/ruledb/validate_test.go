package ruledb

import (
	"strings"
	"testing"

	"pma/internal/testutil"
)

func TestValidate_Fixture(t *testing.T) {
	fx := testutil.LoadFixture(t, "ruledb")

	if problems := Validate(fx.Root, []string{"7.4", "8.0", "8.1"}); len(problems) != 0 {
		t.Errorf("fixture database should be clean, got %v", problems)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	fx := testutil.NewRuleDB(t).
		Hop("A", "B", `{
  "removed_functions": [{"function": "f", "regex": "(?<!x)f"}, {"regex": "g"}],
  "deprecated_features": [{"title": "no regex"}],
  "behavior_changes": [{"title": "odd", "regex": "x", "severity": "urgent"}]
}`).
		Hop("C", "D", `not json`).
		Platform("wp", `{"functions": [{"function": "wp_old"}]}`)
	testutil.WriteFiles(t, fx.Root, map[string]string{"platforms/empty/README": "x"})

	problems := Validate(fx.Root, []string{"A", "B", "C", "D"})

	want := []string{
		"invalid regex",
		"missing function",
		"missing regex, rule is inert",
		`unknown severity "urgent"`,
		"B-to-C.json: rule file missing",
		"C-to-D.json",
		"no deprecated-functions rule file",
		"wp_old]: missing regex",
	}
	var all []string
	for _, p := range problems {
		all = append(all, p.String())
	}
	joined := strings.Join(all, "\n")
	for _, w := range want {
		if !strings.Contains(joined, w) {
			t.Errorf("missing problem %q in:\n%s", w, joined)
		}
	}
}

func TestValidate_ManifestPlatforms(t *testing.T) {
	fx := testutil.NewRuleDB(t).
		Hop("7.4", "8.0", `{"removed_functions": [{"function": "each", "regex": "each"}]}`).
		Platform("moodle", `{"functions": []}`)
	testutil.WriteFiles(t, fx.Root, map[string]string{
		ManifestFile: "versions = [\"7.4\", \"8.0\"]\nplatforms = [\"moodle\", \"joomla\"]\n",
	})

	problems := Validate(fx.Root, []string{"7.4", "8.0"})
	if len(problems) != 1 {
		t.Fatalf("got %v, want one problem for joomla", problems)
	}
	if got := problems[0].String(); !strings.Contains(got, "joomla") || !strings.Contains(got, "no deprecated-functions rule file") {
		t.Errorf("problem = %q", got)
	}
}
