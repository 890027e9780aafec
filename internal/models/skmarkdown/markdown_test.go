package skmarkdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTML(t *testing.T) {
	Init()

	out := string(ToHTML("**fet** och _kursiv_"))
	assert.Contains(t, out, "<strong>fet</strong>")
	assert.Contains(t, out, "<em>kursiv</em>")

	// Les liens externes s'ouvrent dans un nouvel onglet
	out = string(ToHTML("[länk](https://example.com)"))
	assert.Contains(t, out, `target="_blank"`)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "fet text", Excerpt("**fet** text", 300))

	long := strings.Repeat("ord ", 200)
	excerpt := Excerpt(long, 50)
	assert.LessOrEqual(t, len(excerpt), 60)
	assert.True(t, strings.HasSuffix(excerpt, "…"))

	assert.Empty(t, Excerpt("", 300))
}
