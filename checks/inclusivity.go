// inclusivity.go: Non-inclusive terminology check
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/agilira/daedalus/qa"
)

// ParamTermsFile names the file listing the terms to report.
const ParamTermsFile = "non_inclusive_language_file"

// ExceptionTag excepts matches on the same or the following line.
const ExceptionTag = "inclusivity-exception"

// Inclusivity reports terms listed in the non-inclusive language file,
// unless tagged with ExceptionTag.
func Inclusivity() qa.Plugin {
	return &definition{
		name: "inclusivity",
		settings: []qa.CheckSetting{
			pathsSetting(),
			excludeSetting(),
			{
				Name:    ParamTermsFile,
				Default: "tools/qa-checks/non-inclusive-language.txt",
				Message: "Path to a file containing non inclusive terminology for the check to find.",
			},
		},
		build: func(logger *slog.Logger, params qa.Params) qa.Check {
			return &inclusivityCheck{logger: logger, params: params}
		},
	}
}

type inclusivityCheck struct {
	logger *slog.Logger
	params qa.Params
}

type term struct {
	text string
	re   *regexp.Regexp
}

func (c *inclusivityCheck) Run(_ context.Context) int {
	c.logger.Debug("Running inclusivity check.")

	path := c.params.Path(ParamTermsFile)
	if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
		return qa.Fail(c.logger, fmt.Sprintf("Could not find the non-inclusive language file at %s.", path))
	}
	terms, err := loadTerms(path)
	if err != nil {
		return qa.Fail(c.logger, err.Error())
	}
	if len(terms) == 0 {
		return qa.Fail(c.logger, "Failed to parse any non-inclusive terms, so check cannot be performed.")
	}

	report := qa.NewReport()
	walkPaths(c.params, report, func(path string) {
		// #nosec G304 -- path comes from walking the configured check paths
		data, err := os.ReadFile(path)
		switch {
		case err != nil:
			report.Add(c.params.Rel(path), err.Error())
			return
		case !utf8.Valid(data):
			report.Add(c.params.Rel(path), "Couldn't process file due to invalid UTF-8 encoding")
			return
		}
		report.Add(c.params.Rel(path), findTerms(string(data), terms)...)
		report.Checked()
	})
	if report.Failed() {
		c.logger.Warn("Found potential non-inclusive terminology.")
	}
	return report.Finish(c.logger)
}

// loadTerms reads one term per line. Blank lines are ignored.
func loadTerms(path string) ([]term, error) {
	// #nosec G304 -- the terms file is configured by the project
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var terms []term
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		t := strings.TrimSpace(sc.Text())
		if t == "" {
			continue
		}
		expr := `\b` + regexp.QuoteMeta(t) + `\b`
		if strings.Contains(t, " ") {
			words := strings.Fields(t)
			for i, w := range words {
				words[i] = regexp.QuoteMeta(w)
			}
			expr = `\b` + strings.Join(words, `\s*`) + `\b`
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term{text: t, re: re})
	}
	return terms, sc.Err()
}

// findTerms returns "lines:term" for every term found in text outside an
// exception, sorted by term.
func findTerms(text string, terms []term) []string {
	lineStarts := []int{0}
	for i, r := range text {
		if r == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}

	var out []string
	for _, t := range terms {
		seen := map[int]bool{}
		var lines []int
		for _, loc := range t.re.FindAllStringIndex(text, -1) {
			line := sort.SearchInts(lineStarts, loc[0]+1) - 1
			from := lineStarts[max(line-1, 0)]
			if strings.Contains(strings.ToLower(text[from:loc[0]]), ExceptionTag) {
				continue
			}
			if !seen[line+1] {
				seen[line+1] = true
				lines = append(lines, line+1)
			}
		}
		if len(lines) == 0 {
			continue
		}
		strs := make([]string, len(lines))
		for i, l := range lines {
			strs[i] = strconv.Itoa(l)
		}
		out = append(out, strings.Join(strs, ",")+":"+t.text)
	}
	sort.Strings(out)
	return out
}
