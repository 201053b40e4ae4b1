package nextconfig

import (
	"github.com/BurntSushi/toml"

	"github.com/almostnode/core/internal/vfs"
)

// tomlOverride is the shape of an optional almostnode.toml file. It
// exists because next.config.* is never evaluated (it's arbitrary JS),
// so a host that wants to pin assetPrefix/basePath without writing a
// real config value into the regex-scanned file can drop one of these
// next to it instead.
type tomlOverride struct {
	AssetPrefix string `toml:"asset_prefix"`
	BasePath    string `toml:"base_path"`
}

// LoadTOMLOverride reads root/almostnode.toml, if present, layering its
// non-empty fields over an already-resolved NextConfig. Malformed TOML
// is ignored rather than failing startup, matching LoadNextConfig's
// best-effort behavior.
func LoadTOMLOverride(v vfs.VFS, root string, cfg NextConfig) NextConfig {
	path := vfs.Join(root, "almostnode.toml")
	if !v.Exists(path) {
		return cfg
	}
	data, err := v.ReadFileSync(path)
	if err != nil {
		return cfg
	}

	var override tomlOverride
	if _, err := toml.Decode(string(data), &override); err != nil {
		return cfg
	}

	if override.AssetPrefix != "" {
		cfg.AssetPrefix = override.AssetPrefix
	}
	if override.BasePath != "" {
		cfg.BasePath = override.BasePath
	}
	return cfg
}
