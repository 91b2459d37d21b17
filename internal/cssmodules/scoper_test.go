package cssmodules

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTemplate = "[path]__[local]__[hash:base64:5]"

func newTestScoper(t *testing.T) *Scoper {
	t.Helper()

	s, err := New(Config{LocalIdentName: testTemplate, Modules: true})
	require.NoError(t, err)
	return s
}

func TestScope_Classes(t *testing.T) {
	s := newTestScoper(t)
	path := "src/Button.css"

	res, err := s.Scope(path, []byte(".button { color: red; }\n.button:hover, .label > span { color: blue; }"))
	require.NoError(t, err)

	button := s.LocalIdent(path, "button")
	label := s.LocalIdent(path, "label")

	out := string(res.CSS)
	assert.Contains(t, out, "."+button+" { color: red; }")
	assert.Contains(t, out, "."+button+":hover, ."+label+" > span { color: blue; }")
	assert.Equal(t, map[string]string{"button": button, "label": label}, res.Exports)
	assert.Equal(t, []string{"button", "label"}, res.Locals())
	assert.Empty(t, res.Imports)
}

func TestScope_EscapedAndUnicodeNames(t *testing.T) {
	s := newTestScoper(t)
	path := "src/Grid.css"

	src := ".sm\\:p-4 { padding: 1rem; }\n.café { color: red; }\n.cafés { color: blue; }\n.w-1\\/2 { composes: sm\\:p-4; }"
	res, err := s.Scope(path, []byte(src))
	require.NoError(t, err)

	padded := s.LocalIdent(path, "sm:p-4")
	cafe := s.LocalIdent(path, "café")
	cafes := s.LocalIdent(path, "cafés")
	half := s.LocalIdent(path, "w-1/2")

	assert.Equal(t, map[string]string{
		"sm:p-4": padded,
		"café":   cafe,
		"cafés":  cafes,
		"w-1/2":  half + " " + padded,
	}, res.Exports)
	assert.True(t, strings.HasPrefix(cafe, "src-__café__"), cafe)
	assert.True(t, strings.HasPrefix(cafes, "src-__cafés__"), cafes)

	out := string(res.CSS)
	assert.Contains(t, out, "."+padded+" { padding: 1rem; }")
	assert.Contains(t, out, "."+cafe+" { color: red; }")
	assert.NotContains(t, out, "composes")
}

func TestScope_EscapedKeyframes(t *testing.T) {
	s := newTestScoper(t)
	path := "src/Spin.css"

	res, err := s.Scope(path, []byte("@keyframes sp\\69 n { to { opacity: 0; } }\n.a { animation: spin 1s; }"))
	require.NoError(t, err)

	spin := s.LocalIdent(path, "spin")
	assert.Contains(t, string(res.CSS), "@keyframes "+spin)
	assert.Contains(t, string(res.CSS), "animation: "+spin+" 1s")
	assert.Equal(t, spin, res.Exports["spin"])
}

func TestScope_IDs(t *testing.T) {
	s := newTestScoper(t)
	path := "src/Layout.css"

	res, err := s.Scope(path, []byte("#main { background: #fff; }"))
	require.NoError(t, err)

	main := s.LocalIdent(path, "main")
	assert.Equal(t, "#"+main+" { background: #fff; }", string(res.CSS))
	assert.Equal(t, main, res.Exports["main"])
}

func TestScope_DeclarationsUntouched(t *testing.T) {
	s := newTestScoper(t)

	src := ".a { margin: .5em 0; background: url(img/a.png); content: \".b\"; }"
	res, err := s.Scope("a.css", []byte(src))
	require.NoError(t, err)

	out := string(res.CSS)
	assert.Contains(t, out, "margin: .5em 0;")
	assert.Contains(t, out, "url(img/a.png)")
	assert.Contains(t, out, "content: \".b\";")
	assert.Len(t, res.Exports, 1)
}

func TestScope_Global(t *testing.T) {
	s := newTestScoper(t)
	path := "src/App.css"

	tests := []struct {
		name string
		src  string
		want func() string
	}{
		{
			name: "global function",
			src:  ":global(.page) .title {}",
			want: func() string { return ".page ." + s.LocalIdent(path, "title") + " {}" },
		},
		{
			name: "global mode until comma",
			src:  ":global .page .body, .title {}",
			want: func() string { return ".page .body, ." + s.LocalIdent(path, "title") + " {}" },
		},
		{
			name: "local function inside global mode",
			src:  ":global .page :local(.title) {}",
			want: func() string { return ".page ." + s.LocalIdent(path, "title") + " {}" },
		},
		{
			name: "pseudo classes kept",
			src:  ".item:not(.active) {}",
			want: func() string {
				return "." + s.LocalIdent(path, "item") + ":not(." + s.LocalIdent(path, "active") + ") {}"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Scope(path, []byte(tt.src))
			require.NoError(t, err)
			require.Equal(t, tt.want(), string(res.CSS))
		})
	}
}

func TestScope_UnterminatedGlobal(t *testing.T) {
	s := newTestScoper(t)

	_, err := s.Scope("a.css", []byte(":global(.page {}"))
	require.ErrorIs(t, err, ErrSyntax)
}

func TestScope_Keyframes(t *testing.T) {
	s := newTestScoper(t)
	path := "src/Spinner.css"

	src := ".spin { animation: rotate 1s linear infinite; }\n@keyframes rotate { from { opacity: 0; } to { opacity: 1; } }"
	res, err := s.Scope(path, []byte(src))
	require.NoError(t, err)

	rotate := s.LocalIdent(path, "rotate")
	out := string(res.CSS)
	assert.Contains(t, out, "animation: "+rotate+" 1s linear infinite;")
	assert.Contains(t, out, "@keyframes "+rotate+" { from { opacity: 0; } to { opacity: 1; } }")
	assert.Equal(t, rotate, res.Exports["rotate"])
}

func TestScope_GlobalKeyframes(t *testing.T) {
	s := newTestScoper(t)

	res, err := s.Scope("a.css", []byte("@keyframes :global(fade) { to { opacity: 0; } }"))
	require.NoError(t, err)
	assert.Equal(t, "@keyframes fade { to { opacity: 0; } }", string(res.CSS))
	assert.Empty(t, res.Exports)
}

func TestScope_MediaQueries(t *testing.T) {
	s := newTestScoper(t)
	path := "a.css"

	res, err := s.Scope(path, []byte("@media (max-width: 600px) { .col { width: 100%; } }"))
	require.NoError(t, err)
	assert.Equal(t, "@media (max-width: 600px) { ."+s.LocalIdent(path, "col")+" { width: 100%; } }", string(res.CSS))
}

func TestScope_Nesting(t *testing.T) {
	s := newTestScoper(t)
	path := "a.css"

	res, err := s.Scope(path, []byte(".card { color: red; &.active { color: blue; } }"))
	require.NoError(t, err)

	want := "." + s.LocalIdent(path, "card") + " { color: red; &." + s.LocalIdent(path, "active") + " { color: blue; } }"
	assert.Equal(t, want, string(res.CSS))
}

func TestScope_Composes(t *testing.T) {
	s := newTestScoper(t)
	path := "src/Button.css"

	src := ".base { padding: 0; }\n.primary { composes: base; color: blue; }\n.danger { composes: primary shadow from global; }"
	res, err := s.Scope(path, []byte(src))
	require.NoError(t, err)

	base := s.LocalIdent(path, "base")
	primary := s.LocalIdent(path, "primary")
	danger := s.LocalIdent(path, "danger")

	assert.NotContains(t, string(res.CSS), "composes")
	assert.Equal(t, base, res.Exports["base"])
	assert.Equal(t, primary+" "+base, res.Exports["primary"])
	assert.Equal(t, danger+" primary shadow", res.Exports["danger"])
}

func TestScope_ComposesTransitive(t *testing.T) {
	s := newTestScoper(t)
	path := "a.css"

	res, err := s.Scope(path, []byte(".a { composes: b; }\n.b { composes: c; }\n.c { composes: a; }"))
	require.NoError(t, err)

	a, b, c := s.LocalIdent(path, "a"), s.LocalIdent(path, "b"), s.LocalIdent(path, "c")
	assert.Equal(t, strings.Join([]string{a, b, c}, " "), res.Exports["a"])
	assert.Equal(t, strings.Join([]string{c, a, b}, " "), res.Exports["c"])
}

func TestScope_ComposesErrors(t *testing.T) {
	s := newTestScoper(t)

	tests := []struct {
		name string
		src  string
	}{
		{name: "other file", src: ".a { composes: b from \"./other.css\"; }"},
		{name: "compound selector", src: ".a .b { composes: c; }"},
		{name: "top level", src: "div { composes: c; }"},
		{name: "missing source", src: ".a { composes: b from; }"},
		{name: "empty", src: ".a { composes: ; }"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Scope("a.css", []byte(tt.src))
			require.ErrorIs(t, err, ErrUnsupportedComposes)
		})
	}
}

func TestScope_Imports(t *testing.T) {
	s := newTestScoper(t)

	src := "@import \"./base.css\";\n@import url(theme.css) screen and (min-width: 600px);\n@import url(\"https://fonts.example.com/font.css\");\n.a {}"
	res, err := s.Scope("a.css", []byte(src))
	require.NoError(t, err)

	require.Equal(t, []Import{
		{URL: "./base.css"},
		{URL: "theme.css", Media: "screen and (min-width: 600px)"},
		{URL: "https://fonts.example.com/font.css", Remote: true},
	}, res.Imports)
	assert.NotContains(t, string(res.CSS), "@import")
}

func TestScope_ModulesDisabled(t *testing.T) {
	s, err := New(Config{LocalIdentName: testTemplate, Modules: false})
	require.NoError(t, err)

	src := "@import \"b.css\";\n.a { animation: spin 1s; }\n@keyframes spin {}"
	res, err := s.Scope("a.css", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "\n.a { animation: spin 1s; }\n@keyframes spin {}", string(res.CSS))
	assert.Empty(t, res.Exports)
	assert.Len(t, res.Imports, 1)
}

func TestScope_Context(t *testing.T) {
	root := t.TempDir()
	s, err := New(Config{LocalIdentName: "[path]__[local]", Context: root, Modules: true})
	require.NoError(t, err)

	res, err := s.Scope(filepath.Join(root, "src", "components", "Card.css"), []byte(".title {}"))
	require.NoError(t, err)
	assert.Equal(t, "src-components-__title", res.Exports["title"])
}

func TestNew_InvalidTemplate(t *testing.T) {
	_, err := New(Config{LocalIdentName: "[hash:rot13:5]", Modules: true})
	require.ErrorIs(t, err, ErrInvalidTemplate)
}
