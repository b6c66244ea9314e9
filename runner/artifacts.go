// artifacts.go: Packaging of build config, logs and images after a build
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package runner

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/agilira/go-errors"
)

// Artifact archive names.
const (
	ConfArchive   = "conf.tgz"
	LogsArchive   = "logs.tgz"
	ImagesArchive = "images.tgz"
)

// DeployArtifacts archives the build configuration, logs and images of
// buildDir into dest. Progress lines go to out.
func DeployArtifacts(buildDir, dest string, out io.Writer) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errors.Wrap(err, ErrCodeArtifacts, "cannot create artifacts directory: "+dest)
	}

	confDir := filepath.Join(buildDir, "conf")
	if isDir(confDir) {
		name := filepath.Join(dest, ConfArchive)
		if err := writeArchive(name, func(a *archive) error {
			return a.add(confDir, "conf")
		}); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Deployed build configuration artifacts into %s\n", name)
	} else {
		_, _ = fmt.Fprintln(out, "No build configuration files to archive")
	}

	tmpDir := filepath.Join(buildDir, "tmp")
	logs := filepath.Join(dest, LogsArchive)
	if err := writeArchive(logs, func(a *archive) error {
		return addLogs(a, buildDir, tmpDir)
	}); err != nil {
		return err
	}
	if !isDir(tmpDir) {
		return nil
	}
	_, _ = fmt.Fprintf(out, "Deployed build logs into %s\n", logs)

	imagesDir := filepath.Join(tmpDir, "deploy", "images")
	if !isDir(imagesDir) {
		_, _ = fmt.Fprintln(out, "No image directory found, did not archive images")
		return nil
	}
	images := filepath.Join(dest, ImagesArchive)
	if err := writeArchive(images, func(a *archive) error {
		return a.add(imagesDir, "images")
	}); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Deployed images into %s\n", images)
	return nil
}

// addLogs collects the cooker daemon log, the latest console logs, every
// recipe temp directory and pseudo.log under "logs/".
func addLogs(a *archive, buildDir, tmpDir string) error {
	cooker := filepath.Join(buildDir, "bitbake-cookerdaemon.log")
	if isFile(cooker) {
		if err := a.add(cooker, "logs/bitbake-cookerdaemon.log"); err != nil {
			return err
		}
	}
	if !isDir(tmpDir) {
		return nil
	}

	consoleDir := filepath.Join(tmpDir, "log", "cooker")
	err := walkExisting(consoleDir, func(p string, d fs.DirEntry) error {
		if d.IsDir() || d.Name() != "console-latest.log" {
			return nil
		}
		target, err := filepath.EvalSymlinks(p)
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(consoleDir, p)
		return a.add(target, path.Join("logs", filepath.ToSlash(rel)))
	})
	if err != nil {
		return err
	}

	workDir := filepath.Join(tmpDir, "work")
	return walkExisting(workDir, func(p string, d fs.DirEntry) error {
		rel, _ := filepath.Rel(workDir, p)
		switch {
		case d.IsDir() && d.Name() == "temp":
			return a.add(p, path.Join("logs", filepath.ToSlash(rel)))
		case d.Type().IsRegular() && d.Name() == "pseudo.log":
			return a.add(p, path.Join("logs", filepath.ToSlash(rel)))
		}
		return nil
	})
}

func walkExisting(root string, fn func(string, fs.DirEntry) error) error {
	if !isDir(root) {
		return nil
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		return fn(p, d)
	})
}

type archive struct {
	tw *tar.Writer
}

func writeArchive(name string, fill func(*archive) error) (err error) {
	// #nosec G304 -- name is under the configured artifacts directory
	f, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, ErrCodeArtifacts, "cannot create archive: "+name)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	defer func() {
		for _, c := range []io.Closer{tw, gz, f} {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, ErrCodeArtifacts, "cannot finish archive: "+name)
			}
		}
	}()
	return fill(&archive{tw: tw})
}

// add stores src under arcname, recursing into directories. Symlinks are
// stored as links.
func (a *archive) add(src, arcname string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrap(err, ErrCodeArtifacts, "cannot read "+p)
		}
		info, err := d.Info()
		if err != nil {
			return errors.Wrap(err, ErrCodeArtifacts, "cannot stat "+p)
		}
		rel, _ := filepath.Rel(src, p)
		name := path.Join(arcname, filepath.ToSlash(rel))

		link := ""
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(p); err != nil {
				return errors.Wrap(err, ErrCodeArtifacts, "cannot read link "+p)
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return errors.Wrap(err, ErrCodeArtifacts, "cannot archive "+p)
		}
		hdr.Name = name
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := a.tw.WriteHeader(hdr); err != nil {
			return errors.Wrap(err, ErrCodeArtifacts, "cannot write archive header for "+p)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		// #nosec G304 -- p is inside the build directory
		f, err := os.Open(p)
		if err != nil {
			return errors.Wrap(err, ErrCodeArtifacts, "cannot open "+p)
		}
		defer func() { _ = f.Close() }()
		if _, err := io.Copy(a.tw, f); err != nil {
			return errors.Wrap(err, ErrCodeArtifacts, "cannot archive "+p)
		}
		return nil
	})
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
