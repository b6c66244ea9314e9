// header_test.go: Tests for the header check
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCheckYears(t *testing.T) {
	modified := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		years string
		want  string
	}{
		{"2023", ""},
		{"2021-2023", ""},
		{"2022", "Copyright date does not match file's last modification"},
		{"2021-2022", "Copyright date does not match file's last modification"},
		{"2023-2021", "2023 > 2021"},
		{"2023-2023", "2023 = 2023"},
	}
	for _, tt := range tests {
		t.Run(tt.years, func(t *testing.T) {
			if got := checkYears(tt.years, modified); got != tt.want {
				t.Errorf("checkYears(%q) = %q, want %q", tt.years, got, tt.want)
			}
		})
	}
}

func TestHeaderCheck(t *testing.T) {
	year := time.Now().UTC().Year()
	root := t.TempDir()

	writeFile(t, root, "good.sh", fmt.Sprintf("#!/bin/sh\n# Copyright (c) %d, Arm Limited.\n#\n# SPDX-License-Identifier: MIT\necho\n", year))
	writeFile(t, root, "good.c", fmt.Sprintf("// Copyright (c) %d-%d, Arm Limited.\n//\n// SPDX-License-Identifier: MIT\n", year-2, year))
	writeFile(t, root, "missing.py", "print('hello')\n")
	writeFile(t, root, "gap.sh", fmt.Sprintf("# Copyright (c) %d, Arm Limited.\necho\n# SPDX-License-Identifier: MIT\n", year))
	writeFile(t, root, "reversed.sh", fmt.Sprintf("# Copyright (c) %d-%d, Arm Limited.\n# SPDX-License-Identifier: MIT\n", year, year-1))
	old := writeFile(t, root, "old.sh", "# Copyright (c) 2001, Arm Limited.\n# SPDX-License-Identifier: MIT\n")
	writeFile(t, root, "build/skipped.txt", "no header\n")

	logger, buf := bufferLogger()
	check := newHeaderCheck(logger, walkParams(t, root, "build/"))
	if code := check.Run(context.Background()); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}

	out := buf.String()
	assertContains(t, out,
		"FAIL",
		"missing.py:Missing header, expected:",
		"gap.sh:Missing header",
		fmt.Sprintf("reversed.sh:Incorrect date format : %d > %d", year, year-1),
		"old.sh:Incorrect date format : Copyright date does not match",
	)
	for _, unexpected := range []string{"good.sh:", "good.c:", "skipped.txt"} {
		if strings.Contains(out, unexpected) {
			t.Errorf("output should not mention %s:\n%s", unexpected, out)
		}
	}

	// Matching the header year to an older modification time passes.
	mtime := time.Date(2001, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(old, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	if msg := check.checkFile(old); msg != "" {
		t.Errorf("unexpected error for %s: %s", filepath.Base(old), msg)
	}
}

func TestHeaderCheck_Contributor(t *testing.T) {
	year := time.Now().UTC().Year()
	root := t.TempDir()
	writeFile(t, root, "a.go", fmt.Sprintf("// Copyright (c) %d, Someone Else\n// SPDX-License-Identifier: MIT\n", year))
	writeFile(t, root, "b.go", fmt.Sprintf("// Copyright (c) %d, Arm Limited and Contributors.\n// SPDX-License-Identifier: MIT\n", year))

	params := walkParams(t, root)
	params[ParamContributor] = "Arm Limited"
	logger, buf := bufferLogger()
	if code := newHeaderCheck(logger, params).Run(context.Background()); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	assertContains(t, buf.String(), "a.go:Missing header")
	if strings.Contains(buf.String(), "b.go:") {
		t.Errorf("b.go names the contributor and should pass:\n%s", buf.String())
	}
}

func TestHeaderCheck_Pass(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "ok.yml", fmt.Sprintf("# Copyright (c) %d, Arm Limited.\n#\n# SPDX-License-Identifier: MIT\n", time.Now().UTC().Year()))

	logger, buf := bufferLogger()
	if code := newHeaderCheck(logger, walkParams(t, root)).Run(context.Background()); code != 0 {
		t.Fatalf("exit code = %d, want 0:\n%s", code, buf.String())
	}
	assertContains(t, buf.String(), "PASS (1 files checked)")
}
