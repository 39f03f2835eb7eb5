package classroom

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseValidLabels(t *testing.T) {
	cases := map[string]Identifier{
		"5A":    {Standard: "5", Division: "A"},
		"10B":   {Standard: "10", Division: "B"},
		"012Z":  {Standard: "012", Division: "Z"},
		" 7C  ": {Standard: "7", Division: "C"},
	}
	for input, want := range cases {
		got, err := Parse(input)
		if err != nil {
			t.Fatalf("expected %q to parse: %v", input, err)
		}
		if got != want {
			t.Fatalf("%q: expected %+v, got %+v", input, want, got)
		}
	}
}

func TestParseRejects(t *testing.T) {
	invalid := []string{"", "5", "A", "5a", "5AB", "A5", "5-A", "５A", "5 A", "10ÄB"}
	for _, input := range invalid {
		got, err := Parse(input)
		if err == nil {
			t.Fatalf("expected %q to fail", input)
		}
		if got != (Identifier{}) {
			t.Fatalf("expected no partial output for %q, got %+v", input, got)
		}
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("expected FormatError for %q, got %T", input, err)
		}
	}
}

func TestParseRoundTripsEveryDivision(t *testing.T) {
	for n := 1; n <= 12; n++ {
		for d := 'A'; d <= 'Z'; d++ {
			label := fmt.Sprintf("%d%c", n, d)
			id, err := Parse(label)
			if err != nil {
				t.Fatalf("parse %s: %v", label, err)
			}
			if id.Label() != label {
				t.Fatalf("expected %s, got %s", label, id.Label())
			}
		}
	}
}

func TestResolvePrefersParts(t *testing.T) {
	id, err := Resolve("ignored", "8", "d")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id.Standard != "8" || id.Division != "D" {
		t.Fatalf("unexpected %+v", id)
	}

	if _, err := Resolve("", "8", "DD"); err == nil {
		t.Fatalf("expected two-letter division to fail")
	}

	id, err = Resolve("3B", "", "")
	if err != nil || id.Label() != "3B" {
		t.Fatalf("expected label fallback, got %+v %v", id, err)
	}
}

func TestStandardParam(t *testing.T) {
	id := Identifier{Standard: "5", Division: "A"}
	if got := id.StandardParam(""); got != "5" {
		t.Fatalf("expected 5, got %s", got)
	}
	if got := id.StandardParam("th"); got != "5th" {
		t.Fatalf("expected 5th, got %s", got)
	}
}
