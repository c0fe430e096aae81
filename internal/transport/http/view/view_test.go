package view

import "testing"

func TestUSD(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "$0"},
		{999, "$999"},
		{1000, "$1,000"},
		{89990, "$89,990"},
		{1234567, "$1,234,567"},
		{23500.4, "$23,500"},
		{-25000, "-$25,000"},
	}
	for _, tc := range cases {
		if got := USD(tc.in); got != tc.want {
			t.Errorf("USD(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestImageURL(t *testing.T) {
	base := "http://localhost:8080"
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"http://other/a.jpg", "http://other/a.jpg"},
		{"/uploads/a.jpg", "http://localhost:8080/uploads/a.jpg"},
		{"uploads/a.jpg", "http://localhost:8080/uploads/a.jpg"},
	}
	for _, tc := range cases {
		if got := ImageURL(base, tc.in); got != tc.want {
			t.Errorf("ImageURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := ImageURL("http://localhost:8080/", "/a.jpg"); got != "http://localhost:8080/a.jpg" {
		t.Errorf("trailing slash not collapsed: %q", got)
	}
}

func TestTemplatesParse(t *testing.T) {
	tpl := Templates("http://localhost:8080")
	for _, name := range []string{"home.html", "login.html", "signup.html", "admin.html"} {
		if tpl.Lookup(name) == nil {
			t.Errorf("template %s missing", name)
		}
	}
}
