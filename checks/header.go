// header.go: Copyright and license header check
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agilira/daedalus/qa"
)

// ParamContributor restricts the copyright line to a contributor.
const ParamContributor = "contributor"

// commentChars are the comment leaders accepted in front of header lines.
const commentChars = `#|*;/`

const expectedHeader = "Copyright (c) YYYY(-YYYY), <Contributor>\nSPDX-License-Identifier: <License name>"

// Header checks that every file carries a copyright and SPDX license
// header whose final year matches the last modification of the file.
func Header() qa.Plugin {
	return &definition{
		name: "header",
		settings: []qa.CheckSetting{
			pathsSetting(),
			excludeSetting(),
			{
				Name:    ParamContributor,
				Message: "Contributor that must appear on the copyright line.",
			},
		},
		build: func(logger *slog.Logger, params qa.Params) qa.Check {
			return newHeaderCheck(logger, params)
		},
	}
}

type headerCheck struct {
	logger *slog.Logger
	params qa.Params
	header *regexp.Regexp
}

func newHeaderCheck(logger *slog.Logger, params qa.Params) *headerCheck {
	owner := ""
	if c := params.String(ParamContributor); c != "" {
		owner = regexp.QuoteMeta(c)
	}
	cls := "[" + regexp.QuoteMeta(commentChars) + "]*"
	expr := `(?m)^` + cls + ` Copyright \(c\) ([0-9]{4}(?:-[0-9]{4})?),.*` + owner + `.*\n` +
		`(?:^` + cls + `\n)*` +
		`^` + cls + ` SPDX-License-Identifier:`
	return &headerCheck{logger: logger, params: params, header: regexp.MustCompile(expr)}
}

func (c *headerCheck) Run(_ context.Context) int {
	c.logger.Debug("Running header check.")
	report := qa.NewReport()
	walkPaths(c.params, report, func(path string) {
		if msg := c.checkFile(path); msg != "" {
			report.Add(c.params.Rel(path), msg)
		}
		report.Checked()
	})
	return report.Finish(c.logger)
}

// checkFile returns the header error of path, or "".
func (c *headerCheck) checkFile(path string) string {
	// #nosec G304 -- path comes from walking the configured check paths
	data, err := os.ReadFile(path)
	if err != nil {
		return err.Error()
	}
	if !utf8.Valid(data) {
		return "Couldn't process file due to invalid UTF-8 encoding"
	}
	m := c.header.FindSubmatch(data)
	if m == nil {
		return "Missing header, expected: \n" + expectedHeader
	}
	info, err := os.Stat(path)
	if err != nil {
		return err.Error()
	}
	if msg := checkYears(string(m[1]), info.ModTime()); msg != "" {
		return "Incorrect date format : " + msg
	}
	return ""
}

// checkYears validates "YYYY" or "YYYY-YYYY" against the modification time.
func checkYears(years string, modified time.Time) string {
	lastChange := strconv.Itoa(modified.UTC().Year())
	start, end, isRange := strings.Cut(years, "-")
	if !isRange {
		if start != lastChange {
			return "Copyright date does not match file's last modification"
		}
		return ""
	}
	from, err1 := strconv.Atoi(start)
	to, err2 := strconv.Atoi(end)
	switch {
	case err1 != nil || err2 != nil:
		return "Expected: YYYY or YYYY-YYYY"
	case from > to:
		return fmt.Sprintf("%d > %d", from, to)
	case from == to:
		return fmt.Sprintf("%d = %d", from, to)
	case end != lastChange:
		return "Copyright date does not match file's last modification"
	}
	return ""
}
