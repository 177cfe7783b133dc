package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	if err := Render(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	t.Setenv("GREPTIMEDB_BLACKOUT_TABLE", "bo_events")

	dir := t.TempDir()
	if err := Render(dir); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "grafana-dashboard.json"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !json.Valid(b) {
		t.Fatalf("rendered dashboard is not valid JSON")
	}
	s := string(b)
	if !strings.Contains(s, "uid1") {
		t.Fatalf("greptime uid not rendered")
	}
	if !strings.Contains(s, "FROM bo_events") {
		t.Fatalf("blackout table override not rendered")
	}
	if !strings.Contains(s, "FROM hazard_damage") {
		t.Fatalf("default damage table not rendered")
	}
}
