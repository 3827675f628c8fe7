package analyzer

import (
	"reflect"
	"testing"
)

func TestInspectRenderBlocking(t *testing.T) {
	cases := []struct {
		name string
		html string
		want []RenderBlockingResource
	}{
		{
			name: "stylesheet in head",
			html: `<html><head><link rel="stylesheet" href="/main.css"></head><body></body></html>`,
			want: []RenderBlockingResource{{Type: "css", URL: "/main.css", Blocking: "render"}},
		},
		{
			name: "bare script in head",
			html: `<html><head><script src="/app.js"></script></head><body></body></html>`,
			want: []RenderBlockingResource{{Type: "js", URL: "/app.js", Blocking: "render"}},
		},
		{
			name: "async script skipped",
			html: `<html><head><script src="/a.js" async></script></head><body></body></html>`,
			want: []RenderBlockingResource{},
		},
		{
			name: "defer script skipped",
			html: `<html><head><script src="/d.js" defer></script></head><body></body></html>`,
			want: []RenderBlockingResource{},
		},
		{
			name: "inline script skipped",
			html: `<html><head><script>console.log(1)</script></head><body></body></html>`,
			want: []RenderBlockingResource{},
		},
		{
			name: "body resources ignored",
			html: `<html><head></head><body><link rel="stylesheet" href="/b.css"><script src="/b.js"></script></body></html>`,
			want: []RenderBlockingResource{},
		},
		{
			name: "mixed-case rel matched",
			html: `<html><head><link rel="Stylesheet" href="/mixed.css"></head><body></body></html>`,
			want: []RenderBlockingResource{{Type: "css", URL: "/mixed.css", Blocking: "render"}},
		},
		{
			name: "alternate stylesheet skipped",
			html: `<html><head><link rel="alternate stylesheet" href="/alt.css"></head><body></body></html>`,
			want: []RenderBlockingResource{},
		},
		{
			name: "preload link skipped",
			html: `<html><head><link rel="preload" href="/p.css" as="style"></head><body></body></html>`,
			want: []RenderBlockingResource{},
		},
		{
			name: "stylesheets before scripts",
			html: `<html><head><script src="/1.js"></script><link rel="stylesheet" href="/1.css"><link rel="stylesheet" href="/2.css"></head><body></body></html>`,
			want: []RenderBlockingResource{
				{Type: "css", URL: "/1.css", Blocking: "render"},
				{Type: "css", URL: "/2.css", Blocking: "render"},
				{Type: "js", URL: "/1.js", Blocking: "render"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := InspectRenderBlocking(tc.html)
			if err != nil {
				t.Fatalf("InspectRenderBlocking: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInspectRenderBlockingMalformedMarkup(t *testing.T) {
	// html.Parse repairs broken markup rather than failing; the scan
	// should still find the head stylesheet.
	got, err := InspectRenderBlocking(`<head><link rel="stylesheet" href="/x.css"><p>unclosed`)
	if err != nil {
		t.Fatalf("InspectRenderBlocking: %v", err)
	}
	if len(got) != 1 || got[0].URL != "/x.css" {
		t.Fatalf("got %v, want single /x.css entry", got)
	}
}
