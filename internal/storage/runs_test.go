package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"pma/internal/analysis"
	"pma/internal/effort"
	pmaerrors "pma/internal/errors"
	"pma/internal/ruledb"
)

func sampleRun(id string, started time.Time) *analysis.AnalysisRun {
	issues := sampleIssues()
	return &analysis.AnalysisRun{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Options: analysis.RunOptions{
			From:     "7.4",
			To:       "8.1",
			Platform: "moodle",
		},
		Files:       3,
		Issues:      issues,
		Summary:     analysis.Summarize(issues, 3, effort.DefaultRates()),
		EffortHours: 4,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	if err := db.SaveRun(ctx, sampleRun("run-1", started)); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	rec, err := db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if rec.From != "7.4" || rec.To != "8.1" || rec.Platform != "moodle" {
		t.Errorf("versions = %s..%s %s", rec.From, rec.To, rec.Platform)
	}
	if rec.Issues != 1 || rec.Critical != 1 || rec.High != 0 {
		t.Errorf("counts = %d/%d/%d", rec.Issues, rec.Critical, rec.High)
	}
	if !rec.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", rec.StartedAt, started)
	}
	if rec.Summary.BySeverity[ruledb.SeverityCritical] != 1 {
		t.Errorf("summary not restored: %+v", rec.Summary)
	}
	if rec.Cancelled {
		t.Error("Cancelled should be false")
	}
}

func TestGetRunNotFound(t *testing.T) {
	db, _ := setupTestDB(t)

	_, err := db.GetRun(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, &pmaerrors.PmaError{Code: pmaerrors.RunNotFound}) {
		t.Errorf("error code = %v, want %v", pmaerrors.CodeOf(err), pmaerrors.RunNotFound)
	}
}

func TestListRuns(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		run := sampleRun(id, base.Add(time.Duration(i)*time.Hour))
		if id == "c" {
			run.Cancelled = true
		}
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 0, []string{"c", "b", "a"}},
		{"limited", 2, []string{"c", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := db.ListRuns(ctx, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			if len(recs) != len(tt.want) {
				t.Fatalf("got %d runs, want %d", len(recs), len(tt.want))
			}
			for i, id := range tt.want {
				if recs[i].ID != id {
					t.Errorf("recs[%d].ID = %s, want %s", i, recs[i].ID, id)
				}
			}
			if !recs[0].Cancelled {
				t.Error("latest run should be marked cancelled")
			}
		})
	}
}
