package helpers

import (
	"reflect"
	"testing"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "defaults https and cleans path",
			in:   "Example.com/news/../tech/latest",
			want: "https://example.com/tech/latest",
		},
		{
			name: "removes default port and tracking params",
			in:   "http://news.example.com:80/article?id=123&utm_source=rss#section",
			want: "http://news.example.com/article?id=123",
		},
		{
			name: "keeps non-default port",
			in:   "https://news.example.com:8443/a",
			want: "https://news.example.com:8443/a",
		},
		{
			name: "sorts query parameters and preserves trailing slash",
			in:   "https://example.com/path/?b=2&a=1&fbclid=xyz",
			want: "https://example.com/path/?a=1&b=2",
		},
		{
			name: "handles schemeless url with double slash",
			in:   "//blog.example.com/post/42?utm_medium=email",
			want: "https://blog.example.com/post/42",
		},
		{
			name: "normalises repeated slashes",
			in:   "https://example.com//a//b///c",
			want: "https://example.com/a/b/c",
		},
		{
			name: "root path",
			in:   "HTTPS://EXAMPLE.COM",
			want: "https://example.com/",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CanonicalURL(tt.in)
			if err != nil {
				t.Fatalf("CanonicalURL() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("CanonicalURL() got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalURLErrors(t *testing.T) {
	t.Parallel()
	if _, err := CanonicalURL(""); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if _, err := CanonicalURL(":///invalid"); err == nil {
		t.Fatalf("expected error for malformed url")
	}
}

func TestIsWebURL(t *testing.T) {
	t.Parallel()
	tests := map[string]bool{
		"https://example.com/a":  true,
		"http://example.com":     true,
		"ftp://example.com/file": false,
		"example.com/a":          false,
		"/relative/path":         false,
		"https://":               false,
		"not a url at all":       false,
	}
	for in, want := range tests {
		if got := IsWebURL(in); got != want {
			t.Errorf("IsWebURL(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDedupeURLs(t *testing.T) {
	t.Parallel()
	in := []string{
		"https://a.example/story?utm_source=x",
		"https://b.example/post",
		"https://A.example/story",
		"https://b.example/post#comments",
		"https://c.example/",
	}
	want := []string{"https://a.example/story?utm_source=x", "https://b.example/post", "https://c.example/"}
	if got := DedupeURLs(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("DedupeURLs() = %v, want %v", got, want)
	}
}
