// Package scene keeps the simulator world file in step with the fetched terrain.
package scene

import (
	"regexp"
	"sort"
	"strings"
)

// Anchor names one of the patched fields of a world document.
type Anchor int

const (
	// vertical component of every heightmap <pos>x y z</pos>
	ElevationPosition Anchor = iota
	// texture tile edge length in <size>
	TextureSize
	// texture reference in <diffuse>
	TextureDiffuse
)

var anchorNames = map[Anchor]string{
	ElevationPosition: "elevation position",
	TextureSize:       "texture size",
	TextureDiffuse:    "texture diffuse",
}

func (a Anchor) String() string {
	return anchorNames[a]
}

// The first capture group of each pattern is the value span that gets replaced.
var anchorPatterns = map[Anchor]*regexp.Regexp{
	ElevationPosition: regexp.MustCompile(`<pos>[ ]*[+-]?[.\d]+\s+[+-]?[.\d]+\s+([+-]?[.\d]+)\s*</pos>`),
	TextureSize:       regexp.MustCompile(`<size>(\s*[.\d]*\s*)</size>`),
	TextureDiffuse:    regexp.MustCompile(`<diffuse>(\S*)</diffuse>`),
}

type field struct {
	anchor     Anchor
	start, end int
}

// Document is a world file split into anchored value spans and the untouched
// text around them.
type Document struct {
	text   string
	fields []field
	values map[Anchor]string
}

func ParseDocument(text string) *Document {
	doc := &Document{
		text:   text,
		values: make(map[Anchor]string),
	}

	for anchor, pattern := range anchorPatterns {
		for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
			doc.fields = append(doc.fields, field{anchor: anchor, start: loc[2], end: loc[3]})
		}
	}
	sort.Slice(doc.fields, func(i, j int) bool {
		return doc.fields[i].start < doc.fields[j].start
	})

	return doc
}

// Count returns how many occurrences of anchor the document holds.
func (d *Document) Count(anchor Anchor) int {
	n := 0
	for _, f := range d.fields {
		if f.anchor == anchor {
			n++
		}
	}
	return n
}

// Values returns the current value of every occurrence of anchor, in document order.
func (d *Document) Values(anchor Anchor) []string {
	var out []string
	for _, f := range d.fields {
		if f.anchor != anchor {
			continue
		}
		if v, ok := d.values[anchor]; ok {
			out = append(out, v)
		} else {
			out = append(out, d.text[f.start:f.end])
		}
	}
	return out
}

// Set replaces every occurrence of anchor and reports how many there were.
func (d *Document) Set(anchor Anchor, value string) int {
	d.values[anchor] = value
	return d.Count(anchor)
}

func (d *Document) String() string {
	if len(d.values) == 0 {
		return d.text
	}

	var b strings.Builder
	b.Grow(len(d.text))
	last := 0
	for _, f := range d.fields {
		v, ok := d.values[f.anchor]
		if !ok {
			continue
		}
		b.WriteString(d.text[last:f.start])
		b.WriteString(v)
		last = f.end
	}
	b.WriteString(d.text[last:])

	return b.String()
}
