package pathvariant

import (
	"strings"
)

// Prefix is the historical container folder most originals live under.
const Prefix = "media/"

// Strategy derives one candidate key from a logical path. Apply returns
// false when the strategy does not apply to the given path.
type Strategy struct {
	Name  string
	Apply func(logical string) (string, bool)
}

// Strategies is the ordered list of key transformations tried during
// resolution. Earlier entries win when several candidates exist.
var Strategies = []Strategy{
	{Name: "as-given", Apply: asGiven},
	{Name: "prefixed", Apply: prefixed},
	{Name: "backslash", Apply: backslash},
	{Name: "prefixed-backslash", Apply: prefixedBackslash},
	{Name: "prefixed-mixed", Apply: prefixedMixed},
	{Name: "dir-spaces-encoded", Apply: dirSpacesEncoded},
	{Name: "segments-encoded", Apply: segmentsEncoded},
	{Name: "file-spaces-encoded", Apply: fileSpacesEncoded},
	{Name: "file-encoded", Apply: fileEncoded},
}

// Candidate is a generated key along with the strategy that produced it.
type Candidate struct {
	Key      string
	Strategy string
}

// Generate returns the deduplicated candidate keys for a logical path in
// strategy order.
func Generate(logical string) []string {
	cands := GenerateDetailed(logical)
	keys := make([]string, len(cands))
	for i, c := range cands {
		keys[i] = c.Key
	}
	return keys
}

// GenerateDetailed is Generate with the producing strategy recorded for each
// key. A key produced by several strategies is attributed to the first.
func GenerateDetailed(logical string) []Candidate {
	seen := make(map[string]struct{}, len(Strategies))
	out := make([]Candidate, 0, len(Strategies))
	for _, s := range Strategies {
		key, ok := s.Apply(logical)
		if !ok || key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Candidate{Key: key, Strategy: s.Name})
	}
	return out
}

// split separates the directory portion from the final segment. dir is ""
// for single-segment paths.
func split(logical string) (dir, file string) {
	i := strings.LastIndex(logical, "/")
	if i < 0 {
		return "", logical
	}
	return logical[:i], logical[i+1:]
}

func joinDir(dir, file string) string {
	if dir == "" {
		return file
	}
	return dir + "/" + file
}

func asGiven(p string) (string, bool) {
	return p, true
}

func prefixed(p string) (string, bool) {
	return Prefix + p, true
}

func backslash(p string) (string, bool) {
	return strings.ReplaceAll(p, "/", `\`), true
}

func prefixedBackslash(p string) (string, bool) {
	return Prefix + strings.ReplaceAll(p, "/", `\`), true
}

// prefixedMixed reproduces midsize files written with a backslash-joined
// directory but a forward slash before the file name.
func prefixedMixed(p string) (string, bool) {
	dir, file := split(p)
	if dir == "" {
		return "", false
	}
	return Prefix + strings.ReplaceAll(dir, "/", `\`) + "/" + file, true
}

func dirSpacesEncoded(p string) (string, bool) {
	dir, file := split(p)
	if !strings.Contains(dir, " ") {
		return "", false
	}
	return strings.ReplaceAll(dir, " ", "%20") + "/" + file, true
}

func segmentsEncoded(p string) (string, bool) {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = encodeWithApostrophe(part)
	}
	return strings.Join(parts, "/"), true
}

func fileSpacesEncoded(p string) (string, bool) {
	dir, file := split(p)
	if !strings.Contains(file, " ") || strings.Contains(file, "%20") {
		return "", false
	}
	return joinDir(dir, strings.ReplaceAll(file, " ", "%20")), true
}

func fileEncoded(p string) (string, bool) {
	dir, file := split(p)
	enc := strings.ReplaceAll(encodeWithApostrophe(file), "%2F", "/")
	return joinDir(dir, enc), true
}

func encodeWithApostrophe(s string) string {
	return strings.ReplaceAll(EncodeURIComponent(s), "'", "%27")
}
