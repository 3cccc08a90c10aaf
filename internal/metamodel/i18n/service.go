// Package i18n translates metamodel texts from gettext catalogs.
//
// Catalogs live in one directory: translations.po holds the default language, and
// translations-<tag>.po (e.g. translations-de.po, translations-pt-BR.po) hold the others.
// Entries use the feature identifier (petclinic.Owner#lastName) as msgctxt; entries without a
// context apply everywhere.
package i18n

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const catalogPrefix = "translations"

// Service holds the loaded catalogs and negotiates locales against them
type Service struct {
	dir      string
	fallback language.Tag
	logger   *zap.Logger

	mu       sync.RWMutex
	catalogs map[language.Tag]*catalog
	tags     []language.Tag
	matcher  language.Matcher
}

// NewService creates a service reading catalogs from dir; fallback is the language of translations.po
func NewService(dir string, fallback language.Tag, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		dir:      dir,
		fallback: fallback,
		logger:   logger.Named("i18n"),
		catalogs: make(map[language.Tag]*catalog),
		matcher:  language.NewMatcher([]language.Tag{fallback}),
		tags:     []language.Tag{fallback},
	}
}

// Load (re)reads every catalog in the directory. A missing directory leaves the service empty.
func (s *Service) Load() error {
	catalogs := make(map[language.Tag]*catalog)

	if s.dir != "" {
		files, err := filepath.Glob(filepath.Join(s.dir, catalogPrefix+"*.po"))
		if err != nil {
			return fmt.Errorf("failed to list catalogs: %w", err)
		}
		for _, file := range files {
			tag, err := s.tagOf(file)
			if err != nil {
				s.logger.Warn("skipping catalog", zap.String("file", file), zap.Error(err))
				continue
			}
			c, err := readCatalog(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			catalogs[tag] = c
			s.logger.Debug("catalog loaded", zap.String("file", file), zap.Stringer("locale", tag))
		}
	}

	tags := []language.Tag{s.fallback}
	for tag := range catalogs {
		if tag != s.fallback {
			tags = append(tags, tag)
		}
	}
	sort.Slice(tags[1:], func(i, j int) bool { return tags[i+1].String() < tags[j+1].String() })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogs = catalogs
	s.tags = tags
	s.matcher = language.NewMatcher(tags)
	return nil
}

// Locales returns the supported languages, the fallback first
func (s *Service) Locales() []language.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]language.Tag(nil), s.tags...)
}

// Negotiate picks the best supported language for an Accept-Language header value
func (s *Service) Negotiate(acceptLanguage string) language.Tag {
	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return s.fallback
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, index, confidence := s.matcher.Match(desired...)
	if confidence == language.No {
		return s.fallback
	}
	return s.tags[index]
}

// Translate returns the translation of text for context in locale, or "" when there is none
func (s *Service) Translate(context, text string, locale language.Tag) string {
	c := s.catalogFor(locale)
	if c == nil {
		return ""
	}
	t, _ := c.lookup(context, text)
	return t
}

// TranslatePlural returns the plural form of singular for n items in locale, or "" when there is none
func (s *Service) TranslatePlural(context, singular, plural string, n int, locale language.Tag) string {
	c := s.catalogFor(locale)
	if c == nil {
		return ""
	}
	t, _ := c.lookupN(context, singular, plural, n)
	return t
}

func (s *Service) catalogFor(locale language.Tag) *catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, index, confidence := s.matcher.Match(locale)
	if confidence == language.No {
		return nil
	}
	return s.catalogs[s.tags[index]]
}

func (s *Service) tagOf(file string) (language.Tag, error) {
	name := strings.TrimSuffix(filepath.Base(file), ".po")
	if name == catalogPrefix {
		return s.fallback, nil
	}
	suffix := strings.TrimPrefix(name, catalogPrefix+"-")
	if suffix == name {
		return language.Und, fmt.Errorf("unexpected catalog name %s", filepath.Base(file))
	}
	return language.Parse(suffix)
}
