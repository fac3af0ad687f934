package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"pma/internal/ruledb"
)

var (
	rulesFrom     string
	rulesTo       string
	rulesPlatform string
	rulesJSON     bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the rule database",
	Long: `Inspect and validate the rule database: the PHP version ordering, the
per-transition rule files and the platform deprecation lists.`,
}

var rulesVersionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the known PHP versions and their transition rule files",
	Args:  cobra.NoArgs,
	RunE:  runRulesVersions,
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every rule file and report all problems",
	Long: `Check every transition and platform rule file. All problems are
reported, not just the first; the command exits 1 if any were found.`,
	Args: cobra.NoArgs,
	RunE: runRulesValidate,
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the composed rules for a version range or platform",
	Long: `Show the rules an analysis would apply.

Examples:
  pma rules show --from 7.4 --to 8.1
  pma rules show --platform moodle
  pma rules show --from 7.4 --to 8.0 --json`,
	Args: cobra.NoArgs,
	RunE: runRulesShow,
}

func init() {
	rulesVersionsCmd.Flags().BoolVar(&rulesJSON, "json", false, "Output JSON")
	rulesShowCmd.Flags().StringVar(&rulesFrom, "from", "", "Current PHP version")
	rulesShowCmd.Flags().StringVar(&rulesTo, "to", "", "Target PHP version")
	rulesShowCmd.Flags().StringVar(&rulesPlatform, "platform", "", "Platform name")
	rulesShowCmd.Flags().BoolVar(&rulesJSON, "json", false, "Output JSON")
	rulesCmd.AddCommand(rulesVersionsCmd, rulesValidateCmd, rulesShowCmd)
	rootCmd.AddCommand(rulesCmd)
}

// versionHop describes one adjacent transition.
type versionHop struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Rules int    `json:"rules"`
	Found bool   `json:"found"`
}

type versionsOutput struct {
	Database  string       `json:"database"`
	Versions  []string     `json:"versions"`
	Hops      []versionHop `json:"hops"`
	Platforms []string     `json:"platforms"`
}

func runRulesVersions(cmd *cobra.Command, args []string) error {
	env, err := envForRoot(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	db, err := env.openRuleDB()
	if err != nil {
		return err
	}

	out := versionsOutput{
		Database:  db.Root(),
		Versions:  db.Versions(),
		Platforms: db.Platforms(),
	}
	for i := 0; i+1 < len(out.Versions); i++ {
		set := db.ComposeVersionRules(out.Versions[i], out.Versions[i+1])
		out.Hops = append(out.Hops, versionHop{
			From:  set.From,
			To:    set.To,
			Rules: set.Len(),
			Found: !set.Empty() || len(set.NewFeatures) > 0,
		})
	}

	w := cmd.OutOrStdout()
	if rulesJSON {
		return writeJSON(w, out)
	}

	fmt.Fprintf(w, "Rule database: %s\n", out.Database)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"From", "To", "Rules", "Data"})
	for _, h := range out.Hops {
		status := "ok"
		if !h.Found {
			status = "missing"
		}
		t.AppendRow(table.Row{h.From, h.To, h.Rules, status})
	}
	t.Render()
	if len(out.Platforms) > 0 {
		fmt.Fprintf(w, "Platforms: %v\n", out.Platforms)
	}
	return nil
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	env, err := envForRoot(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	db, err := env.openRuleDB()
	if err != nil {
		return err
	}

	problems := ruledb.Validate(db.Root(), db.Versions())
	w := cmd.OutOrStdout()
	if len(problems) == 0 {
		fmt.Fprintf(w, "Rule database %s is valid\n", db.Root())
		return nil
	}
	for _, p := range problems {
		fmt.Fprintln(w, p.String())
	}
	return &exitError{
		code: exitFailure,
		msg:  fmt.Sprintf("%d problem(s) found", len(problems)),
	}
}

// ruleRow is one line of `rules show`.
type ruleRow struct {
	ID       string          `json:"id"`
	Kind     string          `json:"kind"`
	Severity ruledb.Severity `json:"severity"`
	Pattern  string          `json:"pattern,omitempty"`
	Status   string          `json:"status"`
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	if rulesPlatform == "" && (rulesFrom == "" || rulesTo == "") {
		return fmt.Errorf("either --from and --to, or --platform, is required")
	}

	env, err := envForRoot(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	db, err := env.openRuleDB()
	if err != nil {
		return err
	}

	var rows []ruleRow
	if rulesFrom != "" && rulesTo != "" {
		from, err := ruledb.NormalizeVersion(rulesFrom)
		if err != nil {
			return err
		}
		to, err := ruledb.NormalizeVersion(rulesTo)
		if err != nil {
			return err
		}
		if err := db.CheckRange(from, to); err != nil {
			return err
		}
		rows = append(rows, versionRuleRows(db.ComposeVersionRules(from, to))...)
	}
	if rulesPlatform != "" {
		rows = append(rows, platformRuleRows(db.PlatformRules(rulesPlatform))...)
	}

	w := cmd.OutOrStdout()
	if rulesJSON {
		if rows == nil {
			rows = []ruleRow{}
		}
		return writeJSON(w, rows)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Rule", "Kind", "Severity", "Pattern", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 40}})
	for _, r := range rows {
		t.AppendRow(table.Row{r.ID, r.Kind, r.Severity, r.Pattern, r.Status})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(rows)})
	t.Render()
	return nil
}

func versionRuleRows(set *ruledb.VersionRuleSet) []ruleRow {
	var rows []ruleRow
	for i := range set.RemovedFunctions {
		r := &set.RemovedFunctions[i]
		// Removed functions also match structurally, so a bad regex only
		// disables the textual fallback.
		rows = append(rows, ruleRow{r.ID(), "removed_function", r.Severity, r.Pattern, detectorStatus(r.Detector, "structural only")})
	}
	for i := range set.DeprecatedFeatures {
		r := &set.DeprecatedFeatures[i]
		rows = append(rows, ruleRow{r.ID(), "deprecated_feature", r.Severity, r.Pattern, detectorStatus(r.Detector, "inert")})
	}
	for i := range set.BehaviorChanges {
		r := &set.BehaviorChanges[i]
		rows = append(rows, ruleRow{r.ID(), "behavior_change", r.Severity, r.Pattern, detectorStatus(r.Detector, "inert")})
	}
	return rows
}

func platformRuleRows(set *ruledb.PlatformRuleSet) []ruleRow {
	var rows []ruleRow
	for i := range set.Functions {
		r := &set.Functions[i]
		rows = append(rows, ruleRow{r.ID(), "deprecated_platform_function", r.Severity, r.Pattern, detectorStatus(r.Detector, "inert")})
	}
	return rows
}

func detectorStatus(d ruledb.Detector, unusable string) string {
	switch {
	case d.Err != nil:
		return "invalid regex, " + unusable
	case !d.Usable():
		return "no regex, " + unusable
	}
	return "ok"
}

// envForRoot builds the environment for commands without a path argument.
func envForRoot(cmd *cobra.Command) (*cliEnv, error) {
	root, err := projectRoot(nil)
	if err != nil {
		return nil, err
	}
	return newEnv(cmd, root)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
