package store

import (
	gopath "path"
	"strings"
)

// NormalizePath canonicalizes an absolute, /-delimited path: repeated
// slashes collapse, "." and ".." segments resolve, trailing slashes drop.
// "/a//b/" and "/a/b" normalize identically. Relative paths are rejected.
func NormalizePath(p string) (string, error) {
	if p == "" || p[0] != '/' {
		return "", NewError(ErrInvalidArgument, "path must be absolute", p)
	}
	clean := gopath.Clean(p)
	return clean, nil
}

// SplitPath returns the parent directory and final component of a
// normalized path. The root splits into ("/", "/").
func SplitPath(p string) (parent, name string) {
	if p == "/" {
		return "/", "/"
	}
	dir, base := gopath.Split(p)
	if dir != "/" {
		dir = strings.TrimSuffix(dir, "/")
	}
	return dir, base
}
