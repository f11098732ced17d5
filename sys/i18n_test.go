package sys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLang(t *testing.T) {
	assert.Equal(t, "en", NormalizeLang("en-US"))
	assert.Equal(t, "fr", NormalizeLang("fr"))
	assert.Equal(t, "fr", NormalizeLang("fr-BE"))
	assert.Equal(t, "en", NormalizeLang("not a tag!"))
	assert.Equal(t, "en", NormalizeLang(""))
}

func TestT(t *testing.T) {
	assert.Equal(t,
		"Added **Song** to the queue at position 3.",
		T("en", "music.added", P{"title": "Song", "position": 3}),
	)
	assert.Equal(t,
		"**Song** ajouté à la file en position 3.",
		T("fr", "music.added", P{"title": "Song", "position": 3}),
	)
}

func TestTFallbacks(t *testing.T) {
	assert.Equal(t, T("en", "error.guild", nil), T("de", "error.guild", nil))
	assert.Equal(t, "no.such.key", T("en", "no.such.key", nil))
	assert.Equal(t, "Something went wrong. Error id: `{id}`", T("en", "error.generic", P{"other": 1}))
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	for _, lang := range Languages {
		assert.True(t, IsLanguage(lang))
		for key := range catalogs[Languages[0]] {
			_, ok := catalogs[lang][key]
			assert.True(t, ok, "%s is missing %s", lang, key)
		}
	}
	assert.False(t, IsLanguage("de"))
}
