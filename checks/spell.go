// spell.go: Dictionary based spell check
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

// Spell check parameters.
const (
	ParamDictPath  = "dict_path"
	ParamWordLists = "word_lists"
)

// wordRe matches the tokens looked up in the dictionary.
var wordRe = regexp.MustCompile(`\p{L}+(?:'\p{L}+)*`)

// Spell reports words missing from the system word lists and the project
// dictionary.
func Spell() qa.Plugin {
	return &definition{
		name: "spell",
		settings: []qa.CheckSetting{
			pathsSetting(),
			excludeSetting(),
			{
				Name:    ParamDictPath,
				Default: "tools/qa-checks/dictionary.txt",
				Message: "Path to a custom dictionary file that provides additional valid words.",
			},
			{
				Name:    ParamWordLists,
				List:    true,
				Default: []string{"/usr/share/dict/words"},
				Message: "Word list files, one word per line, forming the base dictionary.",
			},
		},
		build: func(logger *slog.Logger, params qa.Params) qa.Check {
			return &spellCheck{logger: logger, params: params}
		},
	}
}

type spellCheck struct {
	logger *slog.Logger
	params qa.Params
}

// dictionary is a set of known words.
type dictionary map[string]struct{}

func (d dictionary) load(path string) error {
	// #nosec G304 -- dictionaries are configured by the project
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		for _, w := range wordRe.FindAllString(sc.Text(), -1) {
			d[w] = struct{}{}
		}
	}
	return sc.Err()
}

// known accepts the word as written or in lower case.
func (d dictionary) known(word string) bool {
	if _, ok := d[word]; ok {
		return true
	}
	_, ok := d[strings.ToLower(word)]
	return ok
}

func (c *spellCheck) Run(_ context.Context) int {
	c.logger.Debug("Running spell check.")

	dict := dictionary{}
	for _, list := range c.params.Strings(ParamWordLists) {
		if err := dict.load(c.params.Abs(list)); err != nil {
			c.logger.Warn(fmt.Sprintf("Could not load the word list at %s.", list), "error", err)
		}
	}
	if path := c.params.Path(ParamDictPath); path != "" {
		if err := dict.load(path); err != nil {
			c.logger.Warn(fmt.Sprintf("Could not find the dictionary file at %s.", path), "error", err)
		}
	}
	if len(dict) == 0 {
		return qa.Fail(c.logger, "Failed to load any dictionary words, so check cannot be performed.")
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
		report.Add(c.params.Rel(path), misspelt(string(data), dict)...)
		report.Checked()
	})
	return report.Finish(c.logger)
}

// misspelt returns "lines:word" for every unknown word of text, sorted by
// word. Lines are matched ignoring case.
func misspelt(text string, dict dictionary) []string {
	lines := map[string][]int{}
	var unknown []string
	for i, line := range strings.Split(text, "\n") {
		for _, w := range wordRe.FindAllString(line, -1) {
			if utf8.RuneCountInString(w) < 2 || dict.known(w) {
				continue
			}
			key := strings.ToLower(w)
			seen := lines[key]
			if seen == nil {
				unknown = append(unknown, w)
			}
			if len(seen) == 0 || seen[len(seen)-1] != i+1 {
				lines[key] = append(seen, i+1)
			}
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	out := make([]string, 0, len(unknown))
	for _, w := range unknown {
		nums := lines[strings.ToLower(w)]
		strs := make([]string, len(nums))
		for i, n := range nums {
			strs[i] = strconv.Itoa(n)
		}
		out = append(out, strings.Join(strs, ",")+":"+w)
	}
	return out
}
