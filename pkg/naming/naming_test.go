package naming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"spaces", "Mona Lisa", "Mona-Lisa"},
		{"forbidden characters", `a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"dash runs collapse", "Lady -- with an  Ermine", "Lady-with-an-Ermine"},
		{"leading and trailing spaces", " Annunciation ", "-Annunciation-"},
		{"question with space", "Who? Me", "Who_-Me"},
		{"unicode untouched", "Léda e il cigno", "Léda-e-il-cigno"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestSanitizeProperties(t *testing.T) {
	inputs := []string{
		"",
		"The Last Supper",
		"  many   spaces  ",
		"---",
		"- - -",
		`<>:"/\|?*`,
		"Study of hands (c. 1474)",
		"Madonna | Child / Saint ? Anne",
		"a--b---c----d",
	}

	for _, in := range inputs {
		out := Sanitize(in)

		assert.Equal(t, out, Sanitize(out), "sanitize must be idempotent for %q", in)
		assert.False(t, strings.ContainsAny(out, `<>:"/\|? *`), "forbidden character left in %q", out)
		assert.NotContains(t, out, "--", "double dash left in %q", out)
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://x/y/base.jpg?w=300", ".jpg"},
		{"https://x/y/noext", ".jpg"},
		{"https://example.com/b.png", ".png"},
		{"https://leonardoda-vinci.org/images/paintings/base_6796027.jpg?width=300", ".jpg"},
		{"https://example.com/archive.tar.gz", ".gz"},
		{"https://example.com", ".jpg"},
		{"https://example.com/dir/", ".jpg"},
		{"https://example.com/trailing.", ".jpg"},
		{"https://example.com/a.webp#fragment", ".webp"},
		{"/img/ls.jpg", ".jpg"},
		{"https://x/a.jp%3Fg", ".jp%3Fg"},
		{"https://x/photo.jpg%20copy", ".jpg%20copy"},
		{"https://x/a.b%5C..%5Cc", ".%5Cc"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Extension(tt.url))
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "Mona-Lisa.jpg", Filename("Mona Lisa", "https://example.com/a.jpg"))
	assert.Equal(t, "Last-Supper.png", Filename("Last Supper", "https://example.com/b.png"))
	assert.Equal(t, "Mona-Lisa.jp%3Fg", Filename("Mona Lisa", "https://x/a.jp%3Fg"))
}

func TestExtensionNeverYieldsForbiddenCharacters(t *testing.T) {
	for _, raw := range []string{
		"https://x/a.jp%3Fg",
		"https://x/photo.jpg%20copy",
		"https://x/a.b%5C..%5Cc",
		"https://x/a.b%2Fc",
		"https://x/a.%22q%22",
	} {
		ext := Extension(raw)
		assert.NotContains(t, ext, "/", raw)
		assert.False(t, strings.ContainsAny(ext, `<>:"\|?* `), "%s gave %q", raw, ext)
	}
}
