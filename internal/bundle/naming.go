package bundle

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	fallbackFileName  = "file"
	fallbackAssetName = "model.glb"
	defaultExt        = ".glb"
)

var unsafeRun = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFileName restricts name to letters, digits, '.', '_' and '-'.
// Accents are folded first, runs of other characters become '_', and
// leading or trailing underscores are stripped. An empty result is "file".
func SanitizeFileName(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err != nil {
		folded = name
	}
	safe := unsafeRun.ReplaceAllString(folded, "_")
	safe = strings.Trim(safe, "_")
	if safe == "" {
		return fallbackFileName
	}
	return safe
}

// Hash is the djb2-xor hash of s over its UTF-16 code units, in lowercase hex.
func Hash(s string) string {
	var h int32 = 5381
	for _, c := range utf16.Encode([]rune(s)) {
		h = ((h << 5) + h) ^ int32(c)
	}
	return strconv.FormatUint(uint64(uint32(h)), 16)
}

// PickAssetFileName derives a bundle filename from the last path segment
// of source, ignoring any query or fragment.
func PickAssetFileName(source string) string {
	p := source
	if u, err := url.Parse(source); err == nil {
		p = u.Path
	}
	base := ""
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			base = seg
		}
	}
	if base == "" {
		base = fallbackAssetName
	}
	return SanitizeFileName(base)
}

// AssignNames maps each distinct source to a unique bundle filename.
// Sources are processed in order: the first claims the plain name, later
// sources with a clashing name get "<stem>_<hash><ext>". The mapping is
// deterministic for a given input order.
func AssignNames(sources []string) map[string]string {
	names := make(map[string]string, len(sources))
	used := make(map[string]bool, len(sources))
	for _, src := range sources {
		if _, ok := names[src]; ok {
			continue
		}
		base := PickAssetFileName(src)
		name := base
		if used[name] {
			stem, ext := splitExt(base)
			if ext == "" {
				ext = defaultExt
			}
			stem = stem + "_" + Hash(src)
			name = stem + ext
			for n := 2; used[name]; n++ {
				name = stem + "-" + strconv.Itoa(n) + ext
			}
		}
		used[name] = true
		names[src] = name
	}
	return names
}

func splitExt(name string) (stem, ext string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i:]
	}
	return name, ""
}
