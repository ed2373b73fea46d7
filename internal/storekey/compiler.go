// Package storekey derives deterministic storage/search keys from places.
package storekey

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/atlasgeo/placestore/internal/config"
	"github.com/atlasgeo/placestore/internal/model"
)

// LevelObserver is notified of every admin level that passes through the
// compiler, so backends can maintain the level registry as a side effect of
// key compilation.
type LevelObserver interface {
	ObserveLevels(levels []int)
}

// Compiler turns a Place and a key configuration into a storage key string.
// Identical places always compile to identical keys.
type Compiler struct {
	cfg      config.KeyConfig
	lower    cases.Caser
	observer LevelObserver
}

// New builds a compiler for the given configuration.
func New(cfg config.KeyConfig) *Compiler {
	return &Compiler{
		cfg:   cfg,
		lower: cases.Lower(language.Make(cfg.Locale)),
	}
}

// WithObserver attaches a level observer and returns the compiler.
func (c *Compiler) WithObserver(o LevelObserver) *Compiler {
	c.observer = o
	return c
}

// Compile concatenates, with the configured section glue and in fixed order:
// the global prefix segments, one section per admin level (ascending by
// level number), and six normalized address fields. Missing fields still
// produce an empty section, so two addresses differing only in absent fields
// differ in segment count predictably.
func (c *Compiler) Compile(place model.Place, useLevels, usePrefix, useAddress bool) string {
	var sections []string

	if usePrefix {
		sections = append(sections, c.cfg.Prefix...)
	}

	if useLevels {
		levels := place.AdminLevels.All()
		for _, l := range levels {
			sections = append(sections, strings.Join([]string{
				c.cfg.LevelPrefix,
				strconv.Itoa(l.Level),
				c.normalize(l.Name),
				c.normalize(l.Code),
			}, c.cfg.LevelGlue))
		}
		if c.observer != nil && len(levels) > 0 {
			c.observer.ObserveLevels(place.AdminLevels.Numbers())
		}
	}

	if useAddress {
		sections = append(sections,
			c.normalize(place.Country.Code),
			c.normalize(place.PostalCode),
			c.normalize(place.Locality),
			c.normalize(place.SubLocality),
			c.normalize(place.StreetName),
			c.normalize(place.StreetNumber),
		)
	}

	return strings.Join(sections, c.cfg.SectionGlue)
}

// normalize trims, lowercases (locale-aware) and percent-encodes a field.
// The encoding matches PHP rawurlencode: every byte outside A-Za-z0-9-_.~
// becomes %XX with uppercase hex, including spaces.
func (c *Compiler) normalize(s string) string {
	return rawURLEncode(c.lower.String(strings.TrimSpace(s)))
}

const upperhex = "0123456789ABCDEF"

func rawURLEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9',
			ch == '-', ch == '_', ch == '.', ch == '~':
			b.WriteByte(ch)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[ch>>4])
			b.WriteByte(upperhex[ch&0x0f])
		}
	}
	return b.String()
}
