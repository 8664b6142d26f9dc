// Package langhint provides best-effort language detection from filenames.
package langhint

import (
	"strings"

	"gitstr/internal/core/gitref"
)

// byExtension maps filename extensions to the language label used in event
// tags. Values follow the lowercase names the wider network indexes on.
var byExtension = map[string]string{
	"c":     "c",
	"h":     "c",
	"cc":    "c++",
	"cpp":   "c++",
	"cxx":   "c++",
	"hpp":   "c++",
	"cs":    "c#",
	"clj":   "clojure",
	"css":   "css",
	"dart":  "dart",
	"el":    "emacs lisp",
	"ex":    "elixir",
	"exs":   "elixir",
	"erl":   "erlang",
	"go":    "go",
	"hs":    "haskell",
	"html":  "html",
	"htm":   "html",
	"java":  "java",
	"js":    "javascript",
	"mjs":   "javascript",
	"cjs":   "javascript",
	"json":  "json",
	"jl":    "julia",
	"kt":    "kotlin",
	"kts":   "kotlin",
	"lua":   "lua",
	"md":    "markdown",
	"ml":    "ocaml",
	"mli":   "ocaml",
	"m":     "objective-c",
	"php":   "php",
	"pl":    "perl",
	"proto": "protocol buffer",
	"py":    "python",
	"r":     "r",
	"rb":    "ruby",
	"rs":    "rust",
	"scala": "scala",
	"sh":    "shell",
	"bash":  "shell",
	"zsh":   "shell",
	"sql":   "sql",
	"swift": "swift",
	"tf":    "hcl",
	"toml":  "toml",
	"ts":    "typescript",
	"tsx":   "tsx",
	"jsx":   "jsx",
	"vim":   "vim script",
	"xml":   "xml",
	"yaml":  "yaml",
	"yml":   "yaml",
	"zig":   "zig",
}

// ForFilename returns the best-guess language label for a filename,
// "text" when the extension is unknown.
func ForFilename(path string) string {
	ext := gitref.Extension(path)
	if lang, ok := byExtension[strings.ToLower(ext)]; ok {
		return lang
	}
	return "text"
}
