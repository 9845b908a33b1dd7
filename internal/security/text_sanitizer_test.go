package security

import "testing"

func TestSanitize(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "Deep pothole near the bus stop", "Deep pothole near the bus stop"},
		{"tags stripped", "<b>Deep</b> pothole", "Deep pothole"},
		{"script removed", "pothole<script>alert(1)</script>", "pothole"},
		{"event handler removed", `<img src=x onerror="alert(1)">MG Road`, "MG Road"},
		{"whitespace trimmed", "  MG Road  ", "MG Road"},
		{"only markup becomes empty", "<div><span></span></div>", ""},
		{"empty input", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitize_IsDeterministic(t *testing.T) {
	sanitizer := NewTextSanitizer()

	input := "<p>Jayanagar 4th Block</p>"
	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(input)
	if first != second {
		t.Errorf("Sanitize() = %q then %q, want identical results", first, second)
	}
}
