// Package styleinject wraps processed CSS in a JavaScript module that inserts
// the stylesheet into the document when the module is loaded.
package styleinject

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// moduleTemplate finds or creates a <style data-file> element so repeated
// loads replace the existing sheet.
const moduleTemplate = `const __file = %s;
const __css = %s;
if (typeof document !== "undefined") {
  let s = document.querySelector('style[data-file="' + __file + '"]');
  if (!s) { s = document.createElement("style"); s.dataset.file = __file; document.head.appendChild(s); }
  s.textContent = __css;
}
const __locals = %s;
export default __locals;
`

var identPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

var reserved = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true, "continue": true,
	"debugger": true, "default": true, "delete": true, "do": true, "else": true, "enum": true,
	"export": true, "extends": true, "false": true, "finally": true, "for": true, "function": true,
	"if": true, "import": true, "in": true, "instanceof": true, "new": true, "null": true,
	"return": true, "super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true, "with": true,
	"yield": true, "let": true, "static": true, "await": true, "implements": true,
	"interface": true, "package": true, "private": true, "protected": true, "public": true,
}

// bindings are declared by moduleTemplate and cannot be exported again.
var bindings = map[string]bool{"__file": true, "__css": true, "__locals": true}

// Module returns the ES module source for a stylesheet. id identifies the
// stylesheet in the document, exports maps local names to scoped class names.
func Module(id string, css []byte, exports map[string]string) (string, error) {
	file, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("failed to encode style id: %w", err)
	}

	sheet, err := json.Marshal(string(css))
	if err != nil {
		return "", fmt.Errorf("failed to encode stylesheet: %w", err)
	}

	if exports == nil {
		exports = map[string]string{}
	}
	locals, err := json.Marshal(exports)
	if err != nil {
		return "", fmt.Errorf("failed to encode exports: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, moduleTemplate, file, sheet, locals)

	for _, name := range NamedExports(exports) {
		value, _ := json.Marshal(exports[name])
		fmt.Fprintf(&b, "export const %s = %s;\n", name, value)
	}

	return b.String(), nil
}

// NamedExports returns the locals that can be exported as JavaScript
// identifiers, sorted.
func NamedExports(exports map[string]string) []string {
	var names []string
	for _, name := range slices.Sorted(maps.Keys(exports)) {
		if identPattern.MatchString(name) && !reserved[name] && !bindings[name] {
			names = append(names, name)
		}
	}
	return names
}
