package slug

import "testing"

// TestGenerate exercises the slug generator with typical titles, special
// characters, unicode and edge cases.
func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// --- Normal titles ---
		{name: "simple two words", input: "Hello World", want: "hello-world"},
		{name: "title with year", input: "Hello World 2026", want: "hello-world-2026"},
		{name: "single word", input: "GoLang", want: "golang"},
		{
			name:  "mixed case sentence",
			input: "The Quick Brown Fox Jumps Over the Lazy Dog",
			want:  "the-quick-brown-fox-jumps-over-the-lazy-dog",
		},

		// --- Special characters ---
		{name: "punctuation marks", input: "Hello, World! How's it going?", want: "hello-world-hows-it-going"},
		{name: "ampersand and at sign", input: "Rock & Roll @ the Arena", want: "rock-roll-the-arena"},
		{name: "parentheses and brackets", input: "Version (2.0) [Beta]", want: "version-20-beta"},
		{name: "underscores kept", input: "snake_case title", want: "snake_case-title"},

		// --- Whitespace and hyphens ---
		{name: "leading and trailing spaces", input: "   padded   ", want: "padded"},
		{name: "multiple spaces", input: "a    b", want: "a-b"},
		{name: "tabs and newlines", input: "a\tb\nc", want: "a-b-c"},
		{name: "existing hyphens collapse", input: "a - - b", want: "a-b"},
		{name: "leading hyphen and underscore trimmed", input: "-_edge_-", want: "edge"},

		// --- Unicode ---
		{name: "accents folded", input: "Héllo Wörld", want: "hello-world"},
		{name: "romanian diacritics", input: "Țară și mâncare", want: "tara-si-mancare"},
		{name: "compatibility forms", input: "ﬁne ２０２６", want: "fine-2026"},
		{name: "non latin dropped", input: "Привет world", want: "world"},
		{name: "emoji dropped", input: "Go 🚀 fast", want: "go-fast"},

		// --- Edge cases ---
		{name: "empty string", input: "", want: ""},
		{name: "only symbols", input: "!@#$%^&*()", want: ""},
		{name: "only non latin", input: "日本語", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.input); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestGenerateIdempotent verifies that slugifying a slug is a no-op.
func TestGenerateIdempotent(t *testing.T) {
	inputs := []string{"Hello World", "Héllo, Wörld!", "a_b c-d"}
	for _, in := range inputs {
		once := Generate(in)
		if twice := Generate(once); twice != once {
			t.Errorf("Generate(Generate(%q)) = %q, want %q", in, twice, once)
		}
	}
}
