package validation

import "testing"

func TestSanitizeNote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Fix the button", "Fix the button"},
		{"line one\r\nline two", "line one\nline two"},
		{"tab\there", "tab\there"},
		{"null\x00byte", "nullbyte"},
		{"bell\x07", "bell"},
		{"  spaced  ", "  spaced  "},
		{"Größe ändern 🙂", "Größe ändern 🙂"},
	}
	for _, tt := range tests {
		if got := SanitizeNote(tt.in); got != tt.want {
			t.Errorf("SanitizeNote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"shot.png", "shot.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\Desktop\shot.png`, "shot.png"},
		{"  home.png  ", "home.png"},
		{"bad\x00name.png", "badname.png"},
		{"", ""},
		{".", ""},
		{"..", ""},
		{"dir/", "dir"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeFilename(string(long)); len(got) != maxFilenameLength {
		t.Errorf("long name trimmed to %d bytes, want %d", len(got), maxFilenameLength)
	}
}
