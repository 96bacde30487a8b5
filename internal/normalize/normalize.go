// Package normalize implements the text canonicalization rules shared by the
// matcher, the change applier and the reporting layer. Both spreadsheets come
// from hand-maintained Excel files, so every comparison goes through here
// first.
package normalize

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// EmailDomain completes bare user names into corporate addresses.
const EmailDomain = "castano.cl"

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Spanish stop words removed before comparing center descriptions.
var stopWords = map[string]bool{
	"de": true, "la": true, "el": true, "los": true,
	"las": true, "y": true, "en": true, "del": true,
}

// Known format aliases so "Santa Isabel" and "SI" land in the same familia.
var formatAliases = map[string]string{
	"santa isabel":     "si",
	"express de lider": "express",
	"hiper lider":      "hiper",
	"mayorista 10":     "m10",
	"super 10":         "s10",
}

// Text canonicalizes free text: trims, repairs double-encoded UTF-8,
// lowercases, strips accents and collapses runs of whitespace.
func Text(s string) string {
	s = repairDoubleEncoding(strings.TrimSpace(s))
	s = strings.ToLower(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// repairDoubleEncoding undoes the classic mojibake of UTF-8 bytes read as
// Latin-1 ("VIÃ‘A" for "VIÑA"). The repair is applied only when every rune
// fits in Latin-1 and the reinterpreted bytes form valid multi-byte UTF-8;
// otherwise the input is returned untouched.
func repairDoubleEncoding(s string) string {
	raw := make([]byte, 0, len(s))
	multibyte := false
	for _, r := range s {
		if r > 0xFF {
			return s
		}
		if r > 0x7F {
			multibyte = true
		}
		raw = append(raw, byte(r))
	}
	if !multibyte || !utf8.Valid(raw) {
		return s
	}
	return string(raw)
}

// Day normalizes a weekday mark for writing back to the master: an X (any
// case) stays an X, everything else (0, empty, stray values) becomes empty.
func Day(v string) string {
	if strings.ToUpper(strings.TrimSpace(v)) == "X" {
		return "X"
	}
	return ""
}

// Mark is the tolerant variant used when diffing rows for the comparison
// report: every spelling of "marked" collapses to X, every spelling of
// "empty" collapses to "".
func Mark(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "", "0", "0.0", "NAN", "NONE", "N", "NO":
		return ""
	case "X", "1", "1.0", "SI", "S", "Y", "YES", "TRUE":
		return "X"
	default:
		return strings.ToUpper(strings.TrimSpace(v))
	}
}

// User converts an assignee to the e-mail form the master stores. Existing
// addresses pass through lowercased; "Nombre Apellido" becomes
// "nombre.apellido@castano.cl" using first and last token.
func User(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if strings.Contains(u, "@") {
		return strings.ToLower(u)
	}
	parts := strings.Fields(u)
	switch {
	case len(parts) >= 2:
		return Text(parts[0]) + "." + Text(parts[len(parts)-1]) + "@" + EmailDomain
	case len(parts) == 1:
		return Text(parts[0]) + "@" + EmailDomain
	}
	return strings.ToLower(u)
}

// Digits strips everything but 0-9 from a center code.
func Digits(code string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, code)
}

// Familia combines customer and format into the relaxed-match family key,
// e.g. "CENCOSUD" + "Jumbo" -> "cencosud_jumbo".
func Familia(customer, formato string) string {
	fmtNorm := Text(formato)
	if alias, ok := formatAliases[fmtNorm]; ok {
		fmtNorm = alias
	} else {
		fmtNorm = strings.ReplaceAll(fmtNorm, " ", "_")
	}
	return Text(customer) + "_" + fmtNorm
}

// Keywords extracts the comparison vocabulary of a center description:
// normalized words minus stop words.
func Keywords(desc string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(Text(desc)) {
		if !stopWords[w] {
			words[w] = true
		}
	}
	return words
}

// CommonKeywords returns the sorted intersection of two keyword sets.
func CommonKeywords(a, b map[string]bool) []string {
	var common []string
	for w := range a {
		if b[w] {
			common = append(common, w)
		}
	}
	sort.Strings(common)
	return common
}
