// This code is in Public Domain. Take all the code you want, I'll just write more.

// Package markdown converts post bodies to HTML. The rest of the system
// treats the conversion as opaque; raw HTML in the input is dropped rather
// than passed through.
package markdown

import (
	"bytes"

	"github.com/yuin/goldmark"
)

var converter = goldmark.New()

// ToHTML converts markdown source to HTML. On a conversion failure the
// result is the empty string; callers treat that like an empty body.
func ToHTML(source string) string {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(source), &buf); err != nil {
		return ""
	}
	return buf.String()
}
