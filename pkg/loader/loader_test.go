package loader

import (
	"context"
	"testing"
)

type staticLoader string

func (s staticLoader) GetText(context.Context, string) ([]byte, error) {
	return []byte(s), nil
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.org/essay", true},
		{"http://localhost:8080/a", true},
		{"ftp://example.org/a", false},
		{"essay.txt", false},
		{"/tmp/essay.txt", false},
		{"https://", false},
	}
	for _, tt := range tests {
		if got := IsURL(tt.in); got != tt.want {
			t.Fatalf("IsURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRouter(t *testing.T) {
	r := Router{Files: staticLoader("file"), Web: staticLoader("web")}

	got, err := r.GetText(context.Background(), " https://example.org ")
	if err != nil || string(got) != "web" {
		t.Fatalf("url: got %q, %v", got, err)
	}
	got, err = r.GetText(context.Background(), "essay.txt")
	if err != nil || string(got) != "file" {
		t.Fatalf("file: got %q, %v", got, err)
	}

	if _, err := (Router{}).GetText(context.Background(), "essay.txt"); err == nil {
		t.Fatal("expected error without file loader")
	}
}
