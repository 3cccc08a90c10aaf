package i18n

import (
	"os"

	"github.com/leonelquinteros/gotext"
)

// catalog is one gettext .po file
type catalog struct {
	po *gotext.Po
}

func parseCatalog(data []byte) *catalog {
	po := gotext.NewPo()
	po.Parse(data)
	return &catalog{po: po}
}

func readCatalog(file string) (*catalog, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return parseCatalog(data), nil
}

// lookup prefers the entry under context and falls back to the context-free one
func (c *catalog) lookup(context, text string) (string, bool) {
	if context != "" && c.po.IsTranslatedC(text, context) {
		return c.po.GetC(text, context), true
	}
	if c.po.IsTranslated(text) {
		return c.po.Get(text), true
	}
	return "", false
}

// lookupN is lookup for the plural form used with n items
func (c *catalog) lookupN(context, singular, plural string, n int) (string, bool) {
	if context != "" && c.po.IsTranslatedNC(singular, n, context) {
		return c.po.GetNC(singular, plural, n, context), true
	}
	if c.po.IsTranslatedN(singular, n) {
		return c.po.GetN(singular, plural, n), true
	}
	return "", false
}
