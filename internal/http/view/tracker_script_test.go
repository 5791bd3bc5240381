package view

import (
	"strings"
	"testing"
)

func TestRenderTrackerScript(t *testing.T) {
	js, err := RenderTrackerScript(TrackerScriptData{Endpoint: "https://stats.example/"})
	if err != nil {
		t.Fatalf("RenderTrackerScript returned error: %v", err)
	}
	if !strings.Contains(js, `var endpoint = "https://stats.example";`) {
		t.Fatalf("expected trimmed endpoint in script:\n%s", js)
	}
	for _, path := range []string{"/api/track/pageview", "/api/track/heatmap", "/api/track/event"} {
		if !strings.Contains(js, path) {
			t.Fatalf("expected %s in script", path)
		}
	}
}

func TestRenderTrackerScript_EscapesEndpoint(t *testing.T) {
	js, err := RenderTrackerScript(TrackerScriptData{Endpoint: `https://x"; alert(1); "`})
	if err != nil {
		t.Fatalf("RenderTrackerScript returned error: %v", err)
	}
	if strings.Contains(js, `"; alert(1); "`) {
		t.Fatalf("endpoint must be escaped:\n%s", js)
	}
}
