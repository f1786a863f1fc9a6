package observability

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type alertRule struct {
	Alert       string            `yaml:"alert"`
	Expr        string            `yaml:"expr"`
	For         string            `yaml:"for"`
	Labels      map[string]string `yaml:"labels"`
	Annotations map[string]string `yaml:"annotations"`
}

type ruleFile struct {
	Groups []struct {
		Name  string      `yaml:"name"`
		Rules []alertRule `yaml:"rules"`
	} `yaml:"groups"`
}

// exported lists the metric names the binaries publish.
var exported = map[string]bool{
	"shepherd_http_requests_total":                true,
	"shepherd_http_request_duration_seconds":      true,
	"shepherd_login_redirects_total":              true,
	"shepherd_jobs_total":                         true,
	"shepherd_jobs_failures_total":                true,
	"shepherd_job_duration_seconds":               true,
	"shepherd_job_last_success_timestamp_seconds": true,
	"shepherd_sessions_pruned_total":              true,
}

var metricName = regexp.MustCompile(`shepherd_[a-z_]+`)

func loadIdentityRules(t *testing.T) []alertRule {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "identity.yml"))
	if err != nil {
		t.Fatalf("read alert file: %v", err)
	}
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		t.Fatalf("unmarshal alert file: %v", err)
	}
	for _, group := range file.Groups {
		if group.Name == "identity" {
			return group.Rules
		}
	}
	t.Fatal("identity alert group missing")
	return nil
}

// runbookAnchors returns the GitHub style anchors of every heading.
func runbookAnchors(t *testing.T) map[string]bool {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "docs", "runbook-identity.md"))
	if err != nil {
		t.Fatalf("read runbook: %v", err)
	}
	anchors := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "#") {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(line, "#"))
		anchors[strings.ReplaceAll(strings.ToLower(title), " ", "-")] = true
	}
	return anchors
}

func TestIdentityAlertRules(t *testing.T) {
	rules := loadIdentityRules(t)
	anchors := runbookAnchors(t)

	severities := map[string]string{
		"LoginRoleFallback":   "warning",
		"HighErrorRate":       "critical",
		"SessionPruneFailing": "warning",
		"SessionPruneStale":   "warning",
	}
	if len(rules) != len(severities) {
		t.Fatalf("expected %d rules, got %d", len(severities), len(rules))
	}

	for _, rule := range rules {
		t.Run(rule.Alert, func(t *testing.T) {
			want, ok := severities[rule.Alert]
			if !ok {
				t.Fatalf("unexpected rule %q", rule.Alert)
			}
			if rule.Labels["severity"] != want {
				t.Fatalf("severity %q, want %q", rule.Labels["severity"], want)
			}
			if rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
				t.Fatal("summary and description annotations are required")
			}
			if rule.For == "" {
				t.Fatal("hold duration is required")
			}

			doc, anchor, found := strings.Cut(rule.Annotations["runbook"], "#")
			if !found || doc != "docs/runbook-identity.md" || !anchors[anchor] {
				t.Fatalf("runbook link %q does not resolve", rule.Annotations["runbook"])
			}

			names := metricName.FindAllString(rule.Expr, -1)
			if len(names) == 0 {
				t.Fatalf("expression %q references no shepherd metric", rule.Expr)
			}
			for _, name := range names {
				if !exported[name] {
					t.Fatalf("expression references unknown metric %q", name)
				}
			}
		})
	}
}
