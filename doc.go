// Package daedalus resolves layered build configuration.
//
// A Registry declares the settings of a tool in order. Each setting has a
// default, which may be a template such as "{project_root}/build" referring
// to earlier settings, and an optional resolve function that validates and
// normalizes the final value.
//
// Values are merged from four layers, later layers winning:
//
//  1. the registry defaults;
//  2. one entry of a versioned config file, named as "file.yml:entry";
//  3. DAEDALUS_<SETTING> environment variables;
//  4. command line flags.
//
// The merged raw values are then resolved once, front to back:
//
//	reg := daedalus.MustRegistry(logger,
//		daedalus.Setting{Name: "project_root", Default: ".", Resolve: daedalus.Path},
//		daedalus.Setting{Name: "out_dir", Default: "{project_root}/build", Resolve: daedalus.Path},
//	)
//	p := &daedalus.Pipeline{Registry: reg, EnvPrefix: daedalus.DefaultEnvPrefix}
//	res := p.Build(daedalus.Sources{ConfigRef: "ci.yml:fvp-build", Environ: os.Environ()})
//	if res.Err != nil {
//		return res.Err
//	}
//	outDir := res.Configs[0].String("out_dir")
//
// A setting may only reference settings declared before it; anything else
// fails with ErrCodeMissingReference. A config can be overridden any number
// of times but resolved only once per round of overrides.
//
// Config files carry a header with a layout version and a map of named
// entries:
//
//	header:
//	  version: 1
//	configs:
//	  fvp-build:
//	    kasfile: [fvp-base.yml]
//	    deploy_artifacts: true
//
// JSON and TOML files with the same structure are accepted. Files with a
// version below 1 are rejected as incompatible.
//
// The package also keeps an audit trail of resolutions, builds and check
// runs in SQLite (or JSONL), queried by the daedalus audit commands.
package daedalus
