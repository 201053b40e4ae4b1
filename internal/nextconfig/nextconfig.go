// Package nextconfig implements the non-evaluating config readers
// devserver needs at startup: a regex/line-scan parser for
// next.config.{ts,js,mjs} (never executed — these files can contain
// arbitrary JS and no engine is embedded) and a tsconfig.json paths
// reader (spec.md §4.3, §6.4).
package nextconfig

import (
	"encoding/json"
	"regexp"

	"github.com/almostnode/core/internal/transform"
	"github.com/almostnode/core/internal/vfs"
)

// NextConfig is the subset of next.config.* fields devserver acts on.
type NextConfig struct {
	AssetPrefix string
	BasePath    string
}

var (
	assetPrefixRe = regexp.MustCompile(`assetPrefix\s*:\s*['"]([^'"]*)['"]`)
	basePathRe    = regexp.MustCompile(`basePath\s*:\s*['"]([^'"]*)['"]`)
)

// LoadNextConfig scans next.config.{ts,js,mjs} (first one found, in
// that order) for assetPrefix/basePath without ever evaluating the
// file as JavaScript.
func LoadNextConfig(v vfs.VFS, root string) NextConfig {
	var cfg NextConfig
	for _, name := range []string{"next.config.ts", "next.config.js", "next.config.mjs"} {
		path := vfs.Join(root, name)
		if !v.Exists(path) {
			continue
		}
		data, err := v.ReadFileSync(path)
		if err != nil {
			continue
		}
		src := string(data)
		if m := assetPrefixRe.FindStringSubmatch(src); m != nil {
			cfg.AssetPrefix = m[1]
		}
		if m := basePathRe.FindStringSubmatch(src); m != nil {
			cfg.BasePath = m[1]
		}
		break
	}
	return cfg
}

// tsconfig is the minimal shape LoadTSConfigPaths reads; unknown
// fields are ignored by json.Unmarshal.
type tsconfig struct {
	CompilerOptions struct {
		Paths map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// LoadTSConfigPaths reads root/tsconfig.json's compilerOptions.paths
// and returns alias rules using the first target listed per key
// (spec.md §6.4 "first target per key").
func LoadTSConfigPaths(v vfs.VFS, root string) []transform.Alias {
	path := vfs.Join(root, "tsconfig.json")
	if !v.Exists(path) {
		return nil
	}
	data, err := v.ReadFileSync(path)
	if err != nil {
		return nil
	}
	var cfg tsconfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil
	}

	firstTargets := make(map[string][]string, len(cfg.CompilerOptions.Paths))
	for prefix, targets := range cfg.CompilerOptions.Paths {
		if len(targets) == 0 {
			continue
		}
		firstTargets[prefix] = targets[:1]
	}
	return transform.ParseTSConfigPaths(firstTargets)
}
