// Package cssmodules rewrites local class names, ids and keyframes in a
// stylesheet into globally unique names, CSS modules style.
package cssmodules

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Config controls how local names are scoped.
type Config struct {
	// LocalIdentName is the template for scoped names, e.g. "[path]__[local]__[hash:base64:5]"
	LocalIdentName string
	// Context is the directory [path] is made relative to
	Context string
	// Modules disables scoping entirely when false
	Modules bool
}

// Import is an @import statement lifted out of a stylesheet.
type Import struct {
	URL    string `json:"url"`
	Media  string `json:"media,omitempty"`
	Remote bool   `json:"remote,omitempty"`
}

// Result is a scoped stylesheet. @import statements are removed from CSS and
// reported in Imports.
type Result struct {
	CSS     []byte
	Exports map[string]string
	Imports []Import
}

// Locals returns the exported local names in sorted order.
func (r *Result) Locals() []string {
	return slices.Sorted(maps.Keys(r.Exports))
}

type Scoper struct {
	cfg  Config
	tmpl *identTemplate
}

func New(cfg Config) (*Scoper, error) {
	tmpl, err := parseTemplate(cfg.LocalIdentName)
	if err != nil {
		return nil, err
	}
	return &Scoper{cfg: cfg, tmpl: tmpl}, nil
}

// LocalIdent returns the scoped name of local in the stylesheet at path.
func (s *Scoper) LocalIdent(path, local string) string {
	return s.tmpl.interpolate(s.relPath(path), local)
}

func (s *Scoper) relPath(path string) string {
	if s.cfg.Context == "" || !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path))
	}
	rel, err := filepath.Rel(s.cfg.Context, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Scope rewrites src, the contents of the stylesheet at path.
func (s *Scoper) Scope(path string, src []byte) (*Result, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	sc := &scope{
		s:         s,
		rel:       s.relPath(path),
		own:       map[string]string{},
		composes:  map[string][]composeRef{},
		keyframes: map[string]string{},
		stack:     []frame{{kind: blockRules}},
	}

	if s.cfg.Modules {
		sc.collectKeyframes(toks)
	}

	if err := sc.walk(toks); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Result{
		CSS:     []byte(sc.out.String()),
		Exports: sc.exports(),
		Imports: sc.imports,
	}, nil
}

type token struct {
	tt   css.TokenType
	text string
}

func tokenize(src []byte) ([]token, error) {
	l := css.NewLexer(parse.NewInputBytes(src))

	var toks []token
	for {
		tt, text := l.Next()
		if tt == css.ErrorToken {
			if err := l.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
			}
			return toks, nil
		}
		toks = append(toks, token{tt: tt, text: string(text)})
	}
}

type blockKind int

const (
	blockRules blockKind = iota
	blockDecls
	blockKeyframes
)

type frame struct {
	kind blockKind
	// classes are the local classes of the selector that opened the block
	classes []string
}

type composeRef struct {
	name   string
	global bool
}

type scope struct {
	s         *Scoper
	rel       string
	out       strings.Builder
	own       map[string]string
	composes  map[string][]composeRef
	keyframes map[string]string
	imports   []Import
	stack     []frame
}

// nestingAtRules contain rules rather than declarations.
var nestingAtRules = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@layer":     true,
	"@container": true,
	"@document":  true,
	"@scope":     true,
}

var animationProps = map[string]bool{
	"animation":              true,
	"animation-name":         true,
	"-webkit-animation":      true,
	"-webkit-animation-name": true,
}

func isKeyframes(name string) bool {
	return strings.HasSuffix(name, "keyframes") && strings.HasPrefix(name, "@")
}

func (sc *scope) current() frame {
	return sc.stack[len(sc.stack)-1]
}

func (sc *scope) push(f frame) {
	sc.stack = append(sc.stack, f)
}

func (sc *scope) pop() {
	if len(sc.stack) > 1 {
		sc.stack = sc.stack[:len(sc.stack)-1]
	}
}

func (sc *scope) walk(toks []token) error {
	var stmt []token
	for _, tok := range toks {
		switch tok.tt {
		case css.LeftBraceToken:
			if err := sc.openBlock(stmt); err != nil {
				return err
			}
			stmt = nil
		case css.SemicolonToken:
			if err := sc.statement(stmt, true); err != nil {
				return err
			}
			stmt = nil
		case css.RightBraceToken:
			if err := sc.statement(stmt, false); err != nil {
				return err
			}
			stmt = nil
			sc.out.WriteByte('}')
			sc.pop()
		default:
			stmt = append(stmt, tok)
		}
	}
	return sc.statement(stmt, false)
}

func (sc *scope) local(name string) string {
	if scoped, ok := sc.own[name]; ok {
		return scoped
	}
	scoped := sc.s.tmpl.interpolate(sc.rel, name)
	sc.own[name] = scoped
	return scoped
}

func (sc *scope) collectKeyframes(toks []token) {
	for i, tok := range toks {
		if tok.tt != css.AtKeywordToken || !isKeyframes(strings.ToLower(tok.text)) {
			continue
		}
		if j := nextSignificant(toks, i+1); j >= 0 && toks[j].tt == css.IdentToken {
			name := unescapeIdent(toks[j].text)
			sc.keyframes[name] = sc.local(name)
		}
	}
}

func (sc *scope) openBlock(stmt []token) error {
	cur := sc.current()
	first := nextSignificant(stmt, 0)

	switch {
	case first >= 0 && stmt[first].tt == css.AtKeywordToken:
		name := strings.ToLower(stmt[first].text)
		switch {
		case isKeyframes(name):
			sc.keyframesPrelude(stmt, first)
			sc.push(frame{kind: blockKeyframes})
		case nestingAtRules[name]:
			writeTokens(&sc.out, stmt)
			sc.push(frame{kind: cur.kind, classes: cur.classes})
		default:
			writeTokens(&sc.out, stmt)
			sc.push(frame{kind: blockDecls})
		}
	case cur.kind == blockKeyframes || !sc.s.cfg.Modules:
		writeTokens(&sc.out, stmt)
		sc.push(frame{kind: blockDecls})
	default:
		var classes []string
		if err := sc.selector(&sc.out, stmt, true, &classes); err != nil {
			return err
		}
		sc.push(frame{kind: blockDecls, classes: classes})
	}

	sc.out.WriteByte('{')
	return nil
}

func (sc *scope) statement(stmt []token, semicolon bool) error {
	first := nextSignificant(stmt, 0)
	if first < 0 {
		writeTokens(&sc.out, stmt)
		if semicolon {
			sc.out.WriteByte(';')
		}
		return nil
	}

	if stmt[first].tt == css.AtKeywordToken && strings.EqualFold(stmt[first].text, "@import") {
		imp, err := parseImport(stmt[first+1:])
		if err != nil {
			return err
		}
		sc.imports = append(sc.imports, imp)
		return nil
	}

	if sc.s.cfg.Modules && sc.current().kind == blockDecls {
		prop, value, ok := splitDeclaration(stmt)
		switch {
		case ok && strings.EqualFold(prop, "composes"):
			return sc.compose(value)
		case ok && animationProps[strings.ToLower(prop)]:
			for i, tok := range stmt {
				if tok.tt != css.IdentToken || i < len(stmt)-len(value) {
					continue
				}
				if scoped, found := sc.keyframes[unescapeIdent(tok.text)]; found {
					stmt[i].text = scoped
				}
			}
		}
	}

	writeTokens(&sc.out, stmt)
	if semicolon {
		sc.out.WriteByte(';')
	}
	return nil
}

// selector writes toks with local names scoped. local is the initial mode;
// :global and :local switch it until the next comma.
func (sc *scope) selector(b *strings.Builder, toks []token, local bool, classes *[]string) error {
	initial := local
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.tt {
		case css.ColonToken:
			if i+1 < len(toks) {
				next := toks[i+1]
				fn := strings.ToLower(next.text)
				switch {
				case next.tt == css.FunctionToken && (fn == "global(" || fn == "local("):
					end := matchParen(toks, i+1)
					if end < 0 {
						return fmt.Errorf("%w: unterminated :%s", ErrSyntax, strings.TrimSuffix(fn, "("))
					}
					if err := sc.selector(b, toks[i+2:end], fn == "local(", classes); err != nil {
						return err
					}
					i = end
					continue
				case next.tt == css.IdentToken && (fn == "global" || fn == "local"):
					local = fn == "local"
					i++
					if i+1 < len(toks) && toks[i+1].tt == css.WhitespaceToken {
						i++
					}
					continue
				}
			}
			b.WriteString(tok.text)
		case css.DelimToken:
			if tok.text == "." && i+1 < len(toks) && toks[i+1].tt == css.IdentToken {
				name := toks[i+1].text
				b.WriteByte('.')
				if local {
					key := unescapeIdent(name)
					b.WriteString(sc.local(key))
					*classes = append(*classes, key)
				} else {
					b.WriteString(name)
				}
				i++
				continue
			}
			b.WriteString(tok.text)
		case css.HashToken:
			if local {
				b.WriteByte('#')
				b.WriteString(sc.local(unescapeIdent(tok.text[1:])))
				continue
			}
			b.WriteString(tok.text)
		case css.CommaToken:
			local = initial
			b.WriteString(tok.text)
		default:
			b.WriteString(tok.text)
		}
	}
	return nil
}

func (sc *scope) keyframesPrelude(stmt []token, at int) {
	writeTokens(&sc.out, stmt[:at+1])
	for i := at + 1; i < len(stmt); i++ {
		tok := stmt[i]
		if tok.tt == css.ColonToken && i+1 < len(stmt) && strings.EqualFold(stmt[i+1].text, "global(") {
			if end := matchParen(stmt, i+1); end > 0 {
				writeTokens(&sc.out, stmt[i+2:end])
				i = end
				continue
			}
		}
		if tok.tt == css.IdentToken {
			if scoped, ok := sc.keyframes[unescapeIdent(tok.text)]; ok {
				sc.out.WriteString(scoped)
				continue
			}
		}
		sc.out.WriteString(tok.text)
	}
}

func (sc *scope) compose(value []token) error {
	cur := sc.current()
	if len(cur.classes) != 1 {
		return fmt.Errorf("%w: composes is only allowed in a single class selector", ErrUnsupportedComposes)
	}
	target := cur.classes[0]

	var names []string
	global := false
	sig := significant(value)
	for i := 0; i < len(sig); i++ {
		tok := sig[i]
		switch {
		case tok.tt == css.IdentToken && tok.text == "from":
			if i+1 >= len(sig) {
				return fmt.Errorf("%w: missing source after from", ErrUnsupportedComposes)
			}
			src := sig[i+1]
			if src.tt != css.IdentToken || src.text != "global" {
				return fmt.Errorf("%w: composing from %s", ErrUnsupportedComposes, src.text)
			}
			global = true
			i = len(sig)
		case tok.tt == css.IdentToken:
			names = append(names, unescapeIdent(tok.text))
		case tok.tt == css.CommaToken:
		default:
			return fmt.Errorf("%w: unexpected %q", ErrUnsupportedComposes, tok.text)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: nothing to compose", ErrUnsupportedComposes)
	}

	for _, name := range names {
		if !global {
			sc.local(name)
		}
		sc.composes[target] = append(sc.composes[target], composeRef{name: name, global: global})
	}
	return nil
}

// exports expands composition transitively. Each value starts with the
// local's own scoped name followed by composed names without duplicates.
func (sc *scope) exports() map[string]string {
	out := make(map[string]string, len(sc.own))
	for name, scoped := range sc.own {
		seen := map[string]bool{scoped: true}
		names := []string{scoped}
		visiting := map[string]bool{name: true}

		var expand func(local string)
		expand = func(local string) {
			for _, ref := range sc.composes[local] {
				value := ref.name
				if !ref.global {
					value = sc.own[ref.name]
				}
				if !seen[value] {
					seen[value] = true
					names = append(names, value)
				}
				if !ref.global && !visiting[ref.name] {
					visiting[ref.name] = true
					expand(ref.name)
				}
			}
		}
		expand(name)

		out[name] = strings.Join(names, " ")
	}
	return out
}

func parseImport(toks []token) (Import, error) {
	i := nextSignificant(toks, 0)
	if i < 0 {
		return Import{}, fmt.Errorf("%w: empty @import", ErrSyntax)
	}

	var url string
	rest := i + 1
	switch tok := toks[i]; {
	case tok.tt == css.StringToken:
		url = unquote(tok.text)
	case tok.tt == css.URLToken:
		inner := strings.TrimSuffix(tok.text[len("url("):], ")")
		url = unquote(strings.TrimSpace(inner))
	case tok.tt == css.FunctionToken && strings.EqualFold(tok.text, "url("):
		j := nextSignificant(toks, i+1)
		end := matchParen(toks, i)
		if j < 0 || end < 0 || toks[j].tt != css.StringToken {
			return Import{}, fmt.Errorf("%w: malformed @import url()", ErrSyntax)
		}
		url = unquote(toks[j].text)
		rest = end + 1
	default:
		return Import{}, fmt.Errorf("%w: unexpected @import target %q", ErrSyntax, tok.text)
	}

	var media strings.Builder
	writeTokens(&media, toks[min(rest, len(toks)):])

	return Import{
		URL:    url,
		Media:  strings.TrimSpace(media.String()),
		Remote: isRemote(url),
	}, nil
}

func isRemote(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "//")
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// splitDeclaration returns the property name and value tokens of "prop: value".
func splitDeclaration(stmt []token) (string, []token, bool) {
	i := nextSignificant(stmt, 0)
	if i < 0 || stmt[i].tt != css.IdentToken {
		return "", nil, false
	}
	j := nextSignificant(stmt, i+1)
	if j < 0 || stmt[j].tt != css.ColonToken {
		return "", nil, false
	}
	return stmt[i].text, stmt[j+1:], true
}

func matchParen(toks []token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i].tt {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isTrivia(tt css.TokenType) bool {
	return tt == css.WhitespaceToken || tt == css.CommentToken
}

func nextSignificant(toks []token, from int) int {
	for i := from; i < len(toks); i++ {
		if !isTrivia(toks[i].tt) {
			return i
		}
	}
	return -1
}

func significant(toks []token) []token {
	out := make([]token, 0, len(toks))
	for _, tok := range toks {
		if !isTrivia(tok.tt) {
			out = append(out, tok)
		}
	}
	return out
}

func writeTokens(b *strings.Builder, toks []token) {
	for _, tok := range toks {
		b.WriteString(tok.text)
	}
}
