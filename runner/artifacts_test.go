// artifacts_test.go: Tests for build artifact deployment
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// archiveFiles lists the regular files and symlinks stored in a .tgz.
func archiveFiles(t *testing.T, name string) map[string]string {
	t.Helper()
	f, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)
	files := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if hdr.Typeflag == tar.TypeDir {
			continue
		}
		data, _ := io.ReadAll(tr)
		files[hdr.Name] = string(data)
	}
	return files
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestDeployArtifacts(t *testing.T) {
	build := t.TempDir()
	writeFile(t, build, "conf/local.conf", "MACHINE = \"fvp-base\"\n")
	writeFile(t, build, "bitbake-cookerdaemon.log", "cooker\n")
	writeFile(t, build, "tmp/log/cooker/fvp-base/20240101.log", "console\n")
	if err := os.Symlink("20240101.log", filepath.Join(build, "tmp/log/cooker/fvp-base/console-latest.log")); err != nil {
		t.Fatal(err)
	}
	writeFile(t, build, "tmp/work/armv8a/busybox/1.35/temp/log.do_compile", "compile\n")
	writeFile(t, build, "tmp/work/armv8a/busybox/1.35/pseudo/pseudo.log", "pseudo\n")
	writeFile(t, build, "tmp/deploy/images/fvp-base/image.wic", "image\n")

	dest := filepath.Join(t.TempDir(), "artifacts", "fvp")
	var out bytes.Buffer
	if err := DeployArtifacts(build, dest, &out); err != nil {
		t.Fatal(err)
	}

	conf := archiveFiles(t, filepath.Join(dest, ConfArchive))
	if diff := cmp.Diff([]string{"conf/local.conf"}, keys(conf)); diff != "" {
		t.Errorf("conf.tgz mismatch (-want +got):\n%s", diff)
	}

	logs := archiveFiles(t, filepath.Join(dest, LogsArchive))
	wantLogs := []string{
		"logs/armv8a/busybox/1.35/pseudo/pseudo.log",
		"logs/armv8a/busybox/1.35/temp/log.do_compile",
		"logs/bitbake-cookerdaemon.log",
		"logs/fvp-base/console-latest.log",
	}
	if diff := cmp.Diff(wantLogs, keys(logs)); diff != "" {
		t.Errorf("logs.tgz mismatch (-want +got):\n%s", diff)
	}
	if logs["logs/fvp-base/console-latest.log"] != "console\n" {
		t.Error("console-latest.log should hold the link target contents")
	}

	images := archiveFiles(t, filepath.Join(dest, ImagesArchive))
	if diff := cmp.Diff([]string{"images/fvp-base/image.wic"}, keys(images)); diff != "" {
		t.Errorf("images.tgz mismatch (-want +got):\n%s", diff)
	}

	for _, s := range []string{"Deployed build configuration artifacts", "Deployed build logs", "Deployed images"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("output missing %q:\n%s", s, out.String())
		}
	}
}

func TestDeployArtifacts_EmptyBuild(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out")
	var out bytes.Buffer
	if err := DeployArtifacts(t.TempDir(), dest, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No build configuration files to archive") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(dest, ImagesArchive)); !os.IsNotExist(err) {
		t.Error("images.tgz should not exist without a tmp directory")
	}
	if len(archiveFiles(t, filepath.Join(dest, LogsArchive))) != 0 {
		t.Error("logs.tgz should be empty")
	}
}
