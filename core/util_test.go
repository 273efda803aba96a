package core

import (
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Hello, World!", want: "hello-world"},
		{in: "Košice Open Day", want: "kosice-open-day"},
		{in: "  --Open  Education--  ", want: "open-education"},
		{in: "Über café", want: "uber-cafe"},
		{in: "OER_101: intro", want: "oer_101-intro"},
		{in: "日本語", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOrderBy(t *testing.T) {
	columns := map[string]string{"title": "LOWER(title)", "id": "id"}

	tests := []struct {
		name      string
		orderings []DBOrdering
		want      string
	}{
		{name: "fallback", want: "id DESC"},
		{name: "unknown fields dropped", orderings: []DBOrdering{{Field: "password"}}, want: "id DESC"},
		{
			name:      "mapped",
			orderings: []DBOrdering{{Field: "title", Ascending: true}, {Field: "id"}},
			want:      "LOWER(title) ASC, id DESC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OrderBy(tt.orderings, columns, "id DESC"); got != tt.want {
				t.Errorf("OrderBy() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestCleanString(t *testing.T) {
	if got := CleanString("  Foo@Bar.org ", true); got != "foo@bar.org" {
		t.Errorf("CleanString() = %q", got)
	}
	if !IsBlank(" \t") || IsBlank(" a ") {
		t.Error("IsBlank() failed")
	}
}
