package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/voxedit/internal/region"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name  string
		stats region.Stats
		want  string
	}{
		{"empty", region.Stats{}, "empty"},
		{"degenerate", region.Stats{ActiveNodes: 4, Degenerate: true, Fallback: true}, "degenerate"},
		{"fallback", region.Stats{ActiveNodes: 4, Fallback: true}, "fallback"},
		{"ok", region.Stats{ActiveNodes: 4}, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Outcome(tt.stats); got != tt.want {
				t.Errorf("Outcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObserveRunAndWriteTextfile(t *testing.T) {
	ObserveRun(region.Stats{
		ActiveNodes:   27,
		EditSeeds:     1,
		ObjectSeeds:   1,
		EditNodes:     1,
		ObjectNodes:   26,
		Flow:          15,
		Sanitized:     2,
		SolveDuration: time.Millisecond,
		TotalDuration: 2 * time.Millisecond,
	})

	path := filepath.Join(t.TempDir(), "metrics", "voxedit.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`voxedit_region_runs_total{outcome="ok"}`,
		`voxedit_region_nodes{kind="active"} 27`,
		`voxedit_region_flow 15`,
		`voxedit_region_stage_duration_seconds_count{stage="solve"}`,
		`voxedit_region_sanitized_edges_total`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}
