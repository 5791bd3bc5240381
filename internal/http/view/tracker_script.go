package view

import (
	"bytes"
	"strings"
	"text/template"
)

// TrackerScriptData configures the rendered beacon script.
type TrackerScriptData struct {
	// Endpoint is the collector base URL without a trailing slash.
	Endpoint string
}

var trackerScriptTmpl = template.Must(template.New("tracker_script").Parse(`(function (w, d) {
	"use strict";
	var endpoint = "{{js .Endpoint}}";
	var started = Date.now();
	var sent = false;
	var interacted = false;

	function send(path, body) {
		var data = JSON.stringify(body);
		if (navigator.sendBeacon) {
			navigator.sendBeacon(endpoint + path, new Blob([data], { type: "application/json" }));
			return;
		}
		fetch(endpoint + path, {
			method: "POST",
			headers: { "Content-Type": "application/json" },
			body: data,
			keepalive: true
		});
	}

	function pageview() {
		if (sent) { return; }
		sent = true;
		send("/api/track/pageview", {
			url: w.location.href,
			referrer: d.referrer,
			timeOnPage: Math.round((Date.now() - started) / 1000),
			bounce: !interacted
		});
	}

	d.addEventListener("click", function (e) {
		interacted = true;
		send("/api/track/heatmap", {
			pageUrl: w.location.pathname,
			xCoord: e.pageX,
			yCoord: e.pageY,
			eventType: "click"
		});
	}, true);

	d.addEventListener("visibilitychange", function () {
		if (d.visibilityState === "hidden") { pageview(); }
	});
	w.addEventListener("pagehide", pageview);

	w.powerstats = {
		track: function (eventType, eventData) {
			interacted = true;
			send("/api/track/event", {
				eventType: eventType,
				eventData: eventData || null,
				pageUrl: w.location.pathname
			});
		}
	};
})(window, document);
`))

// RenderTrackerScript renders the client beacon script.
func RenderTrackerScript(data TrackerScriptData) (string, error) {
	data.Endpoint = strings.TrimRight(data.Endpoint, "/")

	var buf bytes.Buffer
	if err := trackerScriptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
