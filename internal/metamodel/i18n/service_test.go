package i18n

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"
)

const germanCatalog = `# German translations
msgid ""
msgstr ""
"Content-Type: text/plain; charset=UTF-8\n"

msgctxt "petclinic.Owner#lastName"
msgid "Last Name"
msgstr "Nachname"

msgid "Name"
msgstr "Name"

msgid "Owner"
msgstr ""
"Besitzer"

msgid "Pets"
msgid_plural "Pets"
msgstr[0] "Haustier"
msgstr[1] "Haustiere"
`

func TestCatalog(t *testing.T) {
	c := parseCatalog([]byte(germanCatalog))

	t.Run("context specific", func(t *testing.T) {
		got, ok := c.lookup("petclinic.Owner#lastName", "Last Name")
		assert.True(t, ok)
		assert.Equal(t, "Nachname", got)

		_, ok = c.lookup("petclinic.Vet#lastName", "Last Name")
		assert.False(t, ok)
	})

	t.Run("continuation lines", func(t *testing.T) {
		got, ok := c.lookup("", "Owner")
		assert.True(t, ok)
		assert.Equal(t, "Besitzer", got)
	})

	t.Run("plural forms", func(t *testing.T) {
		got, ok := c.lookupN("", "Pets", "Pets", 1)
		assert.True(t, ok)
		assert.Equal(t, "Haustier", got)

		got, _ = c.lookupN("", "Pets", "Pets", 3)
		assert.Equal(t, "Haustiere", got)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := c.lookup("", "Vet")
		assert.False(t, ok)
	})
}

func TestService(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "translations-de.po"), []byte(germanCatalog), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "translations.po"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "translations-!!.po"), []byte(""), 0o644))

	svc := NewService(dir, language.English, zaptest.NewLogger(t))
	require.NoError(t, svc.Load())

	assert.Equal(t, []language.Tag{language.English, language.German}, svc.Locales())

	t.Run("context specific", func(t *testing.T) {
		assert.Equal(t, "Nachname", svc.Translate("petclinic.Owner#lastName", "Last Name", language.German))
		assert.Equal(t, "", svc.Translate("petclinic.Vet#lastName", "Last Name", language.German))
	})

	t.Run("context free fallback", func(t *testing.T) {
		assert.Equal(t, "Besitzer", svc.Translate("petclinic.Owner", "Owner", language.German))
	})

	t.Run("regional variant matches", func(t *testing.T) {
		assert.Equal(t, "Besitzer", svc.Translate("", "Owner", language.MustParse("de-AT")))
	})

	t.Run("plural", func(t *testing.T) {
		assert.Equal(t, "Haustiere", svc.TranslatePlural("", "Pets", "Pets", 2, language.German))
		assert.Equal(t, "", svc.TranslatePlural("", "Pets", "Pets", 2, language.Japanese))
	})

	t.Run("unsupported locale", func(t *testing.T) {
		assert.Equal(t, "", svc.Translate("", "Owner", language.Japanese))
	})

	t.Run("negotiate", func(t *testing.T) {
		assert.Equal(t, language.German, svc.Negotiate("de-CH,de;q=0.9,en;q=0.5"))
		assert.Equal(t, language.English, svc.Negotiate("ja"))
		assert.Equal(t, language.English, svc.Negotiate(""))
	})
}
