// commit_msg.go: Commit message format check
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"strings"

	"github.com/agilira/daedalus"
	"github.com/agilira/daedalus/qa"
)

// Commit message check parameters.
const (
	ParamTitleLength = "title_length"
	ParamBodyLength  = "body_length"
)

const (
	signedOffBy     = "Signed-off-by:"
	signedOffFormat = "Signed-off-by: Name <valid@email.dom>"
)

// CommitMsg validates the latest commit message of each repository in
// paths: title length, blank second line, body line length and well
// formed sign-offs.
func CommitMsg() qa.Plugin {
	return &definition{
		name: "commit_msg",
		settings: []qa.CheckSetting{
			{
				Name:    ParamPaths,
				List:    true,
				Default: []string{daedalus.KeywordRoot},
				Message: "File paths to target Git repositories.",
			},
			{
				Name:    ParamTitleLength,
				Default: "80",
				Message: "Maximum number of characters in title.",
			},
			{
				Name:    ParamBodyLength,
				Default: "80",
				Message: "Maximum number of characters in each line of message body.",
			},
		},
		build: func(logger *slog.Logger, params qa.Params) qa.Check {
			return &commitMsgCheck{logger: logger, params: params}
		},
	}
}

type commitMsgCheck struct {
	logger *slog.Logger
	params qa.Params
	exec   qa.CommandFunc
	find   func(logger *slog.Logger, name string) string
}

func (c *commitMsgCheck) Run(ctx context.Context) int {
	c.logger.Debug("Running commit_msg check.")

	find := c.find
	if find == nil {
		find = qa.FindExecutable
	}
	git := find(c.logger, "git")
	if git == "" {
		return qa.Fail(c.logger, "Could not find git")
	}
	exec := c.exec
	if exec == nil {
		exec = qa.RunCommand
	}

	var errs []string
	for _, p := range c.params.Strings(ParamPaths) {
		path := c.params.Abs(p)
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Sprintf("Directory %s not found.", path))
			continue
		}
		cmd := []string{"-C", path, "log", "-1", "--pretty=%B"}
		out, code, err := exec(ctx, path, git, cmd...)
		msg := strings.TrimSpace(out)
		if err != nil || code != 0 || msg == "" {
			errs = append(errs, fmt.Sprintf("commit_msg: no commit message found via '%s %s'", git, strings.Join(cmd, " ")))
			continue
		}
		errs = append(errs, c.checkMessage(msg)...)
	}

	if len(errs) > 0 {
		c.logger.Error("FAIL")
		for _, e := range errs {
			c.logger.Error(e)
		}
		return 1
	}
	c.logger.Info("PASS")
	return 0
}

// checkMessage validates a trimmed commit message.
func (c *commitMsgCheck) checkMessage(msg string) []string {
	titleMax := c.params.Int(ParamTitleLength, 80)
	bodyMax := c.params.Int(ParamBodyLength, 80)

	var errs []string
	var signOffs []string
	for i, line := range strings.Split(msg, "\n") {
		n := len([]rune(line))
		switch {
		case i == 0 && line == "":
			errs = append(errs, "commit_msg: Title is empty")
		case i == 0 && n > titleMax:
			errs = append(errs, fmt.Sprintf("commit_msg: Title is too long (%d > %d): '%s'", n, titleMax, line))
		case i == 1 && line != "":
			errs = append(errs, fmt.Sprintf("commit_msg: Line %d is not empty", i))
		case i > 1 && n > bodyMax:
			errs = append(errs, fmt.Sprintf("commit_msg: Line %d is too long (%d > %d): '%s'", i, n, bodyMax, line))
		}
		if strings.Contains(line, signedOffBy) {
			signOffs = append(signOffs, strings.TrimSpace(line))
		}
	}

	if len(signOffs) == 0 {
		errs = append(errs, fmt.Sprintf("signed_off: %s not found", signedOffFormat))
	}
	for _, line := range signOffs {
		if !validSignOff(line) {
			errs = append(errs, fmt.Sprintf("signed_off: '%s' failed validation. Must be formed as '%s'", line, signedOffFormat))
		}
	}
	return errs
}

// validSignOff accepts "Signed-off-by: Name <user@domain.tld>".
func validSignOff(line string) bool {
	_, rest, ok := strings.Cut(line, signedOffBy)
	if !ok {
		return false
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(rest))
	if err != nil || strings.TrimSpace(addr.Name) == "" {
		return false
	}
	local, domain, ok := strings.Cut(addr.Address, "@")
	if !ok || local == "" {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return true
}
