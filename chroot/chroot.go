// Package chroot implements the path algebra that lets nest extract an
// archive whose entries carry absolute paths into a target root that isn't
// "/" without ever escaping that root.
package chroot

import (
	"path"
	"strings"
)

// Root is an absolute filesystem path under which all content paths are
// confined.
type Root string

// WithContent joins r (the root) with content, safely: content is stripped
// of any leading separators and drive prefixes, and any ".." component pops
// the accumulated output rather than escaping upward past it. The result is
// always a subpath of r.
func (r Root) WithContent(content string) string {
	return path.Join(string(r), sanitize(content))
}

// WithRoot is the mirror orientation: r is treated as content, and root is
// the root it should be joined under.
func (r Root) WithRoot(root Root) string {
	return root.WithContent(string(r))
}

// sanitize reduces content to a root-relative path that can never contain a
// leading '/' nor escape upward past its own accumulated components:
//   - leading '/' and Windows drive prefixes are dropped
//   - '.' components are ignored
//   - '..' components pop the last accumulated component; they cannot
//     underflow past the empty accumulator
//   - all other components are appended in order
func sanitize(content string) string {
	content = stripDrivePrefix(content)
	content = filepathToSlash(content)

	var out []string
	for _, part := range strings.Split(content, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, part)
		}
	}
	return strings.Join(out, "/")
}

// stripDrivePrefix removes a leading "C:" style drive letter, if present,
// so Windows-style absolute paths embedded in an archive entry don't leak a
// drive component into the sanitized output.
func stripDrivePrefix(p string) string {
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		return p[2:]
	}
	return p
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
