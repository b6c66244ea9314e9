// doc.go: Package runner documentation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package runner builds Yocto images with kas inside a container.
//
// The runner settings are resolved through the daedalus pipeline: registry
// defaults, an optional runner config file entry, DAEDALUS_* environment
// variables and the command line. Every positional kas file list becomes
// one Task; "all" builds every "*-build" entry of the runner config file.
//
//	reg, _ := runner.NewRegistry(logger)
//	planner := &runner.Planner{Registry: reg, Logger: logger}
//	tasks, err := planner.Plan(runner.Request{
//		CLI: map[string]any{"kasfile": []string{"ewaol-baremetal.yml"}},
//	})
//	if err != nil {
//		logger.Error("invalid build configuration", "error", err)
//	}
//	r := &runner.Runner{Logger: logger}
//	os.Exit(r.Run(ctx, tasks))
//
// Each task runs the container engine in the foreground. Cancelling the
// context stops the container with "<engine> stop <name>" and the task
// fails. With deploy_artifacts set, conf.tgz, logs.tgz and images.tgz are
// written to artifacts_dir/<build_name>.
package runner
