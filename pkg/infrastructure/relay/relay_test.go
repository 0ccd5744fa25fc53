package relay

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefinition_URL(t *testing.T) {
	tests := []struct {
		def      Definition
		expected string
	}{
		{Defaults()[0], "https://api.allorigins.win/get?url=https%3A%2F%2Fexample.com%2Fads.txt"},
		{Defaults()[1], "https://api.allorigins.win/raw?url=https%3A%2F%2Fexample.com%2Fads.txt"},
		{Defaults()[2], "https://corsproxy.io/?https%3A%2F%2Fexample.com%2Fads.txt"},
	}

	for _, tt := range tests {
		if got := tt.def.URL("https://example.com/ads.txt"); got != tt.expected {
			t.Errorf("%s.URL() = %q, want %q", tt.def.Name(), got, tt.expected)
		}
	}

	// a literal plus stays distinguishable from an escaped space
	def := Definition{RelayName: "raw", Template: "https://relay.test/raw?url={url}"}
	want := "https://relay.test/raw?url=https%3A%2F%2Fexample.com%2Fa%20b%2Bc.txt"
	if got := def.URL("https://example.com/a b+c.txt"); got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestDefinition_Unwrap(t *testing.T) {
	enveloped := Definition{RelayName: "json", Template: "https://relay.test/?u={url}", Envelope: "contents"}
	raw := Definition{RelayName: "raw", Template: "https://relay.test/raw?u={url}"}

	tests := []struct {
		name     string
		def      Definition
		input    string
		expected string
		err      error
	}{
		{"raw passthrough", raw, "a, b, DIRECT", "a, b, DIRECT", nil},
		{"envelope", enveloped, `{"contents":"# ads\nx.com, 1, DIRECT","status":{"http_code":200}}`, "# ads\nx.com, 1, DIRECT", nil},
		{"envelope null", enveloped, `{"contents":null}`, "", ErrMissingField},
		{"envelope missing", enveloped, `{"status":{"http_code":404}}`, "", ErrMissingField},
		{"not json", enveloped, "<html>bad gateway</html>", "", ErrNotJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.def.Unwrap(tt.input)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Unwrap() error = %v, want %v", err, tt.err)
			}
			if got != tt.expected {
				t.Errorf("Unwrap() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDefaults_Shape(t *testing.T) {
	defs := Defaults()
	var hasJSON, hasRaw bool
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			t.Errorf("Validate(%s) error = %v", d.Name(), err)
		}
		if d.Envelope != "" {
			hasJSON = true
		} else {
			hasRaw = true
		}
	}
	if !hasJSON || !hasRaw {
		t.Errorf("Defaults() json=%v raw=%v, want both kinds", hasJSON, hasRaw)
	}
}

func TestDefinition_Validate(t *testing.T) {
	bad := []Definition{
		{Template: "https://relay.test/?u={url}"},
		{RelayName: "no-placeholder", Template: "https://relay.test/"},
		{RelayName: "ftp", Template: "ftp://relay.test/{url}"},
	}
	for _, d := range bad {
		if err := d.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", d)
		}
	}
}

func TestLimited(t *testing.T) {
	relays := LimitAll(AsRelays(Defaults()), 1, time.Hour)
	if len(relays) != 3 {
		t.Fatalf("len(LimitAll()) = %d, want 3", len(relays))
	}

	limited := relays[0].(*Limited)
	if limited.Name() != "allorigins-json" {
		t.Errorf("Name() = %q, want allorigins-json", limited.Name())
	}

	if err := limited.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := limited.Wait(ctx); err == nil {
		t.Error("second Wait() = nil, want error from exhausted bucket")
	}
}

func TestLimited_Unlimited(t *testing.T) {
	l := NewLimited(Defaults()[1], 0, 0)
	for i := 0; i < 100; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
}
