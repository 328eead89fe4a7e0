// Package script prepares source text for evaluation by the bridge runtime.
package script

import (
	"fmt"
	"path/filepath"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// loaders maps file extensions to esbuild loaders. Unknown extensions are
// treated as JavaScript.
var loaders = map[string]esbuild.Loader{
	".js":  esbuild.LoaderJS,
	".cjs": esbuild.LoaderJS,
	".mjs": esbuild.LoaderJS,
	".jsx": esbuild.LoaderJSX,
	".ts":  esbuild.LoaderTS,
	".mts": esbuild.LoaderTS,
	".cts": esbuild.LoaderTS,
	".tsx": esbuild.LoaderTSX,
}

// newerSyntax lists markers of syntax introduced after ES2020.
var newerSyntax = []string{
	"??=",
	"||=",
	"&&=",
	"static {",
	"#",
}

// Transform turns the source of file name into an ES2020 script. TypeScript
// and JSX are always transformed; JavaScript is returned unchanged unless it
// may contain newer syntax. Imports are not resolved.
func Transform(name, source string) (string, error) {
	loader := LoaderFor(name)
	if loader == esbuild.LoaderJS && !needsLowering(source) {
		return source, nil
	}

	result := esbuild.Transform(source, esbuild.TransformOptions{
		Loader:     loader,
		Sourcefile: name,
		Target:     esbuild.ES2020,
		Platform:   esbuild.PlatformNeutral,
		Charset:    esbuild.CharsetUTF8,
	})

	if len(result.Errors) > 0 {
		var msgs []string
		for _, e := range result.Errors {
			msgs = append(msgs, formatMessage(e))
		}
		return "", fmt.Errorf("transforming %s: %s", name, strings.Join(msgs, "; "))
	}
	return string(result.Code), nil
}

// LoaderFor returns the esbuild loader for a file name.
func LoaderFor(name string) esbuild.Loader {
	if l, ok := loaders[strings.ToLower(filepath.Ext(name))]; ok {
		return l
	}
	return esbuild.LoaderJS
}

// needsLowering is a cheap check that lets plain scripts skip esbuild.
// False positives only cost a transform.
func needsLowering(source string) bool {
	for _, marker := range newerSyntax {
		if strings.Contains(source, marker) {
			return true
		}
	}
	return false
}

func formatMessage(m esbuild.Message) string {
	if m.Location == nil {
		return m.Text
	}
	return fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text)
}
