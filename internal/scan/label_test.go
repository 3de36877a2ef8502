package scan

import "testing"

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name   string
		length int
		text   string
		want   string
		ok     bool
	}{
		{"exact", 10, "1234567890", "1234567890", true},
		{"surrounded by text", 10, "BAT#1234567890/A", "1234567890", true},
		{"trailing newline", 10, "1234567890\n", "1234567890", true},
		{"leading space", 10, "  0987654321", "0987654321", true},
		{"too long", 10, "12345678901", "", false},
		{"too short", 10, "123456789", "", false},
		{"split by space", 10, "12345 67890", "", false},
		{"first of two", 10, "1111111111 2222222222", "1111111111", true},
		{"empty", 10, "", "", false},
		{"letters only", 10, "abc", "", false},
		{"short labels", 4, "id 4242 x", "4242", true},
		{"short label too long", 4, "42424", "", false},
		{"default length", 0, "5555555555", "5555555555", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewExtractor(tt.length).Extract(tt.text)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Extract(%q) = (%q, %t), want (%q, %t)", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1234567890", "1234567890"},
		{"12 34", "12 34"},
		{"12\n34\n", "12·34·"},
		{"a\tb\x00c", "a·b·c"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
