package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const baseConfig = `
keywords:
  - gold trader
  - bullion analyst
catalog:
  groups:
    global_boards: [linkedin.com, indeed.com]
    asia: [naukri.com, timesjobs.com]
  global:
    groups: [global_boards]
  scopes:
    - code: india
      name: India
      region: asia
      groups: [asia, global_boards]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Keywords) != 2 || cfg.Keywords[0] != "gold trader" {
		t.Errorf("Keywords = %v", cfg.Keywords)
	}
	if cfg.RecencyDays != 30 {
		t.Errorf("RecencyDays = %d, want 30", cfg.RecencyDays)
	}
	if cfg.LimitPerScope != 10 {
		t.Errorf("LimitPerScope = %d, want 10", cfg.LimitPerScope)
	}
	if cfg.Schedule.Frequency != "daily" || cfg.Schedule.At != "08:00" {
		t.Errorf("Schedule = %+v", cfg.Schedule)
	}
	if cfg.Cache.Backend != "json" || cfg.Cache.Path != "job_cache.json" || !cfg.Cache.Lock {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("Notification.Type = %q, want log", cfg.Notification.Type)
	}
	if cfg.ConnectorTimeout != 30*time.Second {
		t.Errorf("ConnectorTimeout = %v, want 30s", cfg.ConnectorTimeout)
	}
}

func TestLoad_CatalogGroupsExpandInOrder(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	global := cfg.Catalog.Global()
	if global.Code != "global" || global.Region != "global" {
		t.Errorf("global scope = %+v", global)
	}
	if strings.Join(global.Sources, ",") != "linkedin.com,indeed.com" {
		t.Errorf("global sources = %v", global.Sources)
	}

	india, ok := cfg.Catalog.Lookup("india")
	if !ok {
		t.Fatal("Lookup(india): not found")
	}
	want := "naukri.com,timesjobs.com,linkedin.com,indeed.com"
	if strings.Join(india.Sources, ",") != want {
		t.Errorf("india sources = %v, want %s", india.Sources, want)
	}

	ids := cfg.Catalog.SourceIDs()
	if strings.Join(ids, ",") != "linkedin.com,indeed.com,naukri.com,timesjobs.com" {
		t.Errorf("SourceIDs = %v", ids)
	}
}

func TestCatalog_AccessorsReturnCopies(t *testing.T) {
	cat, err := NewCatalog(Scope{Sources: []string{"a.com"}}, []Scope{
		{Code: "uk", Name: "United Kingdom", Region: "europe", Sources: []string{"b.com"}},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	scopes := cat.Scopes()
	scopes[0].Sources[0] = "mutated.com"
	g := cat.Global()
	g.Sources[0] = "mutated.com"

	if cat.Scopes()[0].Sources[0] != "b.com" {
		t.Error("Scopes() exposed internal slice")
	}
	if cat.Global().Sources[0] != "a.com" {
		t.Error("Global() exposed internal slice")
	}
	if all := cat.All(); len(all) != 2 || all[0].Code != "global" {
		t.Errorf("All() = %+v", all)
	}
}

func TestCatalog_DuplicateCode(t *testing.T) {
	_, err := NewCatalog(Scope{}, []Scope{
		{Code: "uk", Name: "UK", Region: "europe"},
		{Code: "uk", Name: "UK again", Region: "europe"},
	})
	if err == nil {
		t.Fatal("NewCatalog: expected error for duplicate code")
	}
}

func TestLoad_UnknownGroup(t *testing.T) {
	content := `
keywords: [gold]
catalog:
  global:
    groups: [nope]
`
	_, err := Load(writeConfig(t, content))
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("Load: err = %v, want unknown group error", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "keywords: [broken"))
	if err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_NoKeywords(t *testing.T) {
	content := `
catalog:
  global:
    sources: [linkedin.com]
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load: expected error when no keywords are configured")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("JOBSWEEP_TEST_WEBHOOK", "https://hooks.slack.com/services/T/B/X")
	content := baseConfig + `
notification:
  type: slack
  webhook_url: ${JOBSWEEP_TEST_WEBHOOK}
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notification.WebhookURL != "https://hooks.slack.com/services/T/B/X" {
		t.Errorf("WebhookURL = %q", cfg.Notification.WebhookURL)
	}
}

func TestLoad_SlackRequiresWebhook(t *testing.T) {
	content := baseConfig + `
notification:
  type: slack
`
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("Load: expected error for slack without webhook_url")
	}
}

func TestLoad_EmailRequiresRecipients(t *testing.T) {
	content := baseConfig + `
notification:
  type: email
  email:
    smtp_host: smtp.example.com
    from: alerts@example.com
`
	if _, err := Load(writeConfig(t, content)); err == nil {
		t.Fatal("Load: expected error for email without recipients")
	}
}

func TestLoad_InvalidSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
	}{
		{"unknown frequency", "frequency: fortnightly"},
		{"interval without duration", "frequency: interval"},
		{"bad time", "frequency: daily\n  at: \"25:99\""},
		{"bad weekday", "frequency: weekly\n  weekday: someday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := baseConfig + "schedule:\n  " + tt.schedule + "\n"
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatalf("Load: expected error for %s", tt.name)
			}
		})
	}
}

func TestLoad_SQLiteDefaultPath(t *testing.T) {
	content := baseConfig + `
cache:
  backend: sqlite
  lock: false
  max_age: 720h
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.Path != "job_cache.db" {
		t.Errorf("Cache.Path = %q, want job_cache.db", cfg.Cache.Path)
	}
	if cfg.Cache.Lock {
		t.Error("Cache.Lock = true, want false")
	}
	if cfg.Cache.MaxAge != 720*time.Hour {
		t.Errorf("Cache.MaxAge = %v, want 720h", cfg.Cache.MaxAge)
	}
}

func TestRateLimitConfig_RateFor(t *testing.T) {
	r := RateLimitConfig{RequestsPerSecond: 2, SourceOverrides: map[string]float64{"naukri.com": 0.5}}
	if got := r.RateFor("naukri.com"); got != 0.5 {
		t.Errorf("RateFor(naukri.com) = %v, want 0.5", got)
	}
	if got := r.RateFor("shine.com"); got != 2 {
		t.Errorf("RateFor(shine.com) = %v, want 2", got)
	}
}
