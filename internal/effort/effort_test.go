package effort

import (
	"testing"

	"pma/internal/ruledb"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name  string
		hist  Histogram
		rates Rates
		want  float64
	}{
		{
			name: "default rates",
			hist: Histogram{
				ruledb.SeverityCritical: 2,
				ruledb.SeverityHigh:     1,
				ruledb.SeverityMedium:   3,
				ruledb.SeverityLow:      0,
				ruledb.SeverityInfo:     5,
			},
			rates: DefaultRates(),
			want:  13.5,
		},
		{
			name:  "missing rate defaults to one hour",
			hist:  Histogram{ruledb.SeverityCritical: 1, ruledb.SeverityLow: 3},
			rates: Rates{ruledb.SeverityCritical: 8},
			want:  11,
		},
		{
			name:  "rounds to one decimal",
			hist:  Histogram{ruledb.SeverityInfo: 7},
			rates: Rates{ruledb.SeverityInfo: 0.13},
			want:  0.9,
		},
		{
			name:  "empty histogram",
			hist:  Histogram{},
			rates: DefaultRates(),
			want:  0,
		},
		{
			name:  "nil rates",
			hist:  Histogram{ruledb.SeverityHigh: 2},
			rates: nil,
			want:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.hist, tt.rates); got != tt.want {
				t.Errorf("Estimate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimate_Pure(t *testing.T) {
	h := Histogram{ruledb.SeverityCritical: 3, ruledb.SeverityInfo: 7, ruledb.SeverityMedium: 1}
	first := Estimate(h, DefaultRates())
	for i := 0; i < 50; i++ {
		if got := Estimate(h, DefaultRates()); got != first {
			t.Fatalf("call %d = %v, first = %v", i, got, first)
		}
	}
	if h[ruledb.SeverityCritical] != 3 || len(h) != 3 {
		t.Errorf("histogram mutated: %v", h)
	}
}

func TestBreakdown(t *testing.T) {
	h := Histogram{
		ruledb.SeverityInfo:     5,
		ruledb.SeverityCritical: 2,
		ruledb.SeverityLow:      0,
		ruledb.Severity("odd"):  1,
	}

	got := Breakdown(h, DefaultRates())
	want := []Line{
		{ruledb.SeverityCritical, 2, 4, 8},
		{ruledb.SeverityInfo, 5, 0.1, 0.5},
		{ruledb.Severity("odd"), 1, 1, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestRatesFromConfig(t *testing.T) {
	r := RatesFromConfig(map[string]float64{"Critical": 6, "bogus": 9, "info": 0})
	if r[ruledb.SeverityCritical] != 6 {
		t.Errorf("critical = %v, want 6", r[ruledb.SeverityCritical])
	}
	if _, ok := r[ruledb.Severity("bogus")]; ok {
		t.Error("unknown severity should be dropped")
	}
	if v, ok := r[ruledb.SeverityInfo]; !ok || v != 0 {
		t.Error("explicit zero rate should be kept")
	}

	if got := RatesFromConfig(nil); got[ruledb.SeverityHigh] != 2 {
		t.Errorf("nil table should give defaults, got %v", got)
	}
}

func TestHistogram(t *testing.T) {
	h := Histogram{}
	h.Add(ruledb.SeverityHigh)
	h.Add(ruledb.SeverityHigh)
	h.Add(ruledb.SeverityLow)
	if h.Total() != 3 || h[ruledb.SeverityHigh] != 2 {
		t.Errorf("histogram = %v", h)
	}
}
