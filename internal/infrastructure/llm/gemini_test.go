package llm

import "testing"

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"plain json",
			`{"amount": 500, "category": "Food & Dining", "description": "Coffee"}`,
			`{"amount": 500, "category": "Food & Dining", "description": "Coffee"}`,
		},
		{
			"json fence",
			"```json\n{\"amount\": 500}\n```",
			`{"amount": 500}`,
		},
		{
			"bare fence",
			"```\n{\"amount\": 500}\n```",
			`{"amount": 500}`,
		},
		{
			"surrounding whitespace",
			"  \n{\"amount\": 500}\n  ",
			`{"amount": 500}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.in); got != tt.want {
				t.Errorf("cleanModelJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("short string should pass through, got %q", got)
	}
	if got := truncate("hello world", 5); got != "hello..." {
		t.Errorf("got %q", got)
	}
}
