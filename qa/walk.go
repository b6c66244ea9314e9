// walk.go: Recursive application of a check to project files
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// WalkOptions filters the files visited by Walk.
type WalkOptions struct {
	// Exclude prunes matching files and directories.
	Exclude *PatternSet

	// Include, when non-empty, restricts visited files to those whose
	// path matches.
	Include *PatternSet

	// FileTypes, when non-empty, restricts visited files to those whose
	// DescribeFile output contains one of the entries, ignoring case.
	FileTypes []string
}

// Walk calls fn for every file at or below path that passes opts. path must
// be absolute. Errors reading the tree are recorded in report against the
// offending path and do not stop the walk.
func Walk(path string, opts WalkOptions, report *Report, fn func(path string)) {
	if !filepath.IsAbs(path) {
		report.Add(path, "invalid path for a recursive check (path must be absolute)")
		return
	}
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			report.Add(p, err.Error())
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if opts.Exclude.MatchPath(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if opts.Include.Len() > 0 && !opts.Include.MatchPath(p) {
			return nil
		}
		if len(opts.FileTypes) > 0 && !matchesFileType(p, opts.FileTypes) {
			return nil
		}
		fn(p)
		return nil
	})
	if err != nil {
		report.Add(path, err.Error())
	}
}

func matchesFileType(path string, types []string) bool {
	desc := strings.ToLower(DescribeFile(path))
	for _, t := range types {
		if strings.Contains(desc, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// interpreters maps a shebang interpreter to a file(1)-style description.
var interpreters = map[string]string{
	"sh":      "POSIX shell script",
	"bash":    "Bourne-Again shell script",
	"dash":    "POSIX shell script",
	"zsh":     "Paul Falstad's zsh script",
	"bats":    "bats shell script",
	"python":  "Python script",
	"python3": "Python script",
	"perl":    "Perl script",
}

// extensions is consulted when a file has no shebang.
var extensions = map[string]string{
	".sh":   "POSIX shell script",
	".bash": "Bourne-Again shell script",
	".bats": "bats shell script",
	".py":   "Python script",
	".yml":  "YAML document",
	".yaml": "YAML document",
	".md":   "Markdown text",
	".rst":  "reStructuredText text",
}

// mimeDescriptions names the script types detected from content alone.
var mimeDescriptions = map[string]string{
	"text/x-shellscript": "shell script",
	"text/x-python":      "Python script",
	"text/x-perl":        "Perl script",
	"text/x-tcl":         "Tcl script",
	"text/x-lua":         "Lua script",
}

// DescribeFile returns a short description of the file content in the style
// of the file(1) utility, such as "Bourne-Again shell script, text
// executable" or "Python script, text". The shebang wins over the
// extension, which wins over content sniffing.
func DescribeFile(path string) string {
	// #nosec G304 -- walking the project tree
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 3072)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return ""
	}
	if n == 0 {
		return "empty"
	}
	head = head[:n]

	mt := mimetype.Detect(head)
	kind := "data"
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			kind = "text"
			break
		}
	}

	if desc, ok := describeShebang(head); ok {
		return desc + ", " + kind + " executable"
	}
	if desc, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return desc + ", " + kind
	}
	if desc, ok := mimeDescriptions[mt.String()]; ok {
		return desc + ", " + kind
	}
	if kind == "text" {
		return "ASCII text"
	}
	return kind
}

func describeShebang(head []byte) (string, bool) {
	if !bytes.HasPrefix(head, []byte("#!")) {
		return "", false
	}
	line, _, _ := bytes.Cut(head[2:], []byte("\n"))
	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return "", false
	}
	interp := filepath.Base(fields[0])
	if interp == "env" {
		args := fields[1:]
		for len(args) > 0 && strings.HasPrefix(args[0], "-") {
			args = args[1:]
		}
		if len(args) == 0 {
			return "", false
		}
		interp = filepath.Base(args[0])
	}
	if desc, ok := interpreters[interp]; ok {
		return desc, true
	}
	if strings.HasPrefix(interp, "python") {
		return "Python script", true
	}
	return interp + " script", true
}
