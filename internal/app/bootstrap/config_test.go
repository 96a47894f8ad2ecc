package bootstrap

import "testing"

func TestLoginURLFor(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		login string
		want  string
	}{
		{"derived from base", "https://hackhub.example", "", "https://hackhub.example/login"},
		{"trailing slash trimmed", "https://hackhub.example/", "", "https://hackhub.example/login"},
		{"explicit override wins", "https://hackhub.example", "https://sso.example/signin", "https://sso.example/signin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := loginURLFor(tt.base, tt.login); got != tt.want {
				t.Errorf("loginURLFor(%q, %q) = %q, want %q", tt.base, tt.login, got, tt.want)
			}
		})
	}
}
