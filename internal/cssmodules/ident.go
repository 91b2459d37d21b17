package cssmodules

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/minio/crc64nvme"
	"github.com/mr-tron/base58"
)

// hashPattern matches [hash], [contenthash] and the long form
// [<hashType>:hash:<digest>:<length>].
var hashPattern = regexp.MustCompile(`\[(?:([a-z][a-z0-9]*):)?(?:content)?hash(?::([a-z][a-z0-9]*))?(?::(\d+))?\]`)

type hashSpec struct {
	digest string
	length int
}

// identTemplate is a parsed localIdentName.
type identTemplate struct {
	raw    string
	hashes []hashSpec
}

func parseTemplate(raw string) (*identTemplate, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty template", ErrInvalidTemplate)
	}

	tmpl := &identTemplate{raw: raw}
	for _, m := range hashPattern.FindAllStringSubmatch(raw, -1) {
		if m[1] != "" && m[1] != "crc64" {
			return nil, fmt.Errorf("%w: unsupported hash type %q", ErrInvalidTemplate, m[1])
		}

		hs := hashSpec{digest: "base64"}
		if m[2] != "" {
			hs.digest = m[2]
		}
		switch hs.digest {
		case "hex", "base64", "base58":
		default:
			return nil, fmt.Errorf("%w: unsupported digest %q", ErrInvalidTemplate, hs.digest)
		}

		if m[3] != "" {
			n, err := strconv.Atoi(m[3])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("%w: bad hash length %q", ErrInvalidTemplate, m[3])
			}
			hs.length = n
		}
		tmpl.hashes = append(tmpl.hashes, hs)
	}

	return tmpl, nil
}

// interpolate expands the template for one local name. rel is the slash
// separated path of the stylesheet relative to the scoper context.
func (t *identTemplate) interpolate(rel, local string) string {
	dir := filepath.ToSlash(filepath.Dir(rel))
	base := filepath.Base(rel)
	ext := filepath.Ext(base)

	pathPart, folder := "", ""
	if dir != "." && dir != "/" {
		pathPart = dir + "/"
		folder = filepath.Base(dir)
	}

	sum := identHash(rel, local)

	i := 0
	out := hashPattern.ReplaceAllStringFunc(t.raw, func(string) string {
		hs := t.hashes[i]
		i++
		return hs.encode(sum)
	})

	out = strings.NewReplacer(
		"[path]", pathPart,
		"[name]", strings.TrimSuffix(base, ext),
		"[ext]", ext,
		"[folder]", folder,
		"[local]", local,
	).Replace(out)

	return escapeIdent(out)
}

func identHash(rel, local string) []byte {
	h := crc64nvme.New()
	h.Write([]byte(rel))
	h.Write([]byte{0})
	h.Write([]byte(local))

	return binary.BigEndian.AppendUint64(nil, h.Sum64())
}

func (s hashSpec) encode(sum []byte) string {
	var out string
	switch s.digest {
	case "hex":
		out = hex.EncodeToString(sum)
	case "base58":
		out = base58.Encode(sum)
	default:
		out = base64.RawStdEncoding.EncodeToString(sum)
	}

	if s.length > 0 && s.length < len(out) {
		out = out[:s.length]
	}
	return out
}

// escapeIdent turns an interpolated name into a valid CSS identifier.
// Non-ASCII letters are kept.
func escapeIdent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == utf8.RuneError:
			b.WriteByte('-')
		case r >= utf8.RuneSelf:
			b.WriteRune(r)
		case isIdentByte(byte(r)):
			b.WriteByte(byte(r))
		default:
			b.WriteByte('-')
		}
	}

	out := b.String()
	switch {
	case strings.HasPrefix(out, "--"):
		return "_" + out
	case len(out) > 0 && isDigit(out[0]):
		return "_" + out
	case len(out) > 1 && out[0] == '-' && isDigit(out[1]):
		return "_" + out
	}
	return out
}

// unescapeIdent resolves CSS escapes in an identifier token, so `sm\:p-4`
// and `\31 0` name the locals "sm:p-4" and "10".
func unescapeIdent(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}

		j := i + 1
		for j < len(s) && j-i <= 6 && isHex(s[j]) {
			j++
		}
		if j == i+1 {
			_, size := utf8.DecodeRuneInString(s[j:])
			b.WriteString(s[j : j+size])
			i = j + size - 1
			continue
		}

		cp, _ := strconv.ParseUint(s[i+1:j], 16, 32)
		if cp == 0 || cp > unicode.MaxRune || (cp >= 0xD800 && cp <= 0xDFFF) {
			cp = unicode.ReplacementChar
		}
		b.WriteRune(rune(cp))
		if j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n') {
			j++
		}
		i = j - 1
	}
	return b.String()
}

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentByte(c byte) bool {
	return c == '-' || c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
