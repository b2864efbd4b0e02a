// Package config loads the plugin-lifecycle Policy from its three-tier
// precedence: environment variables > a YAML config file's explicit
// fields > a named preset. The hierarchy mirrors
// loadCriticalPluginsFromConfig's env-var/viper/default fallback chain.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/forgeci/plugincore/internal/plugin"
)

// PolicyFile is the on-disk shape a policy config file is decoded from.
// Every field is optional; an absent field falls through to the preset.
type PolicyFile struct {
	Preset           string   `yaml:"preset"`
	RequireSignature *bool    `yaml:"require_signature"`
	RequireIntegrity *bool    `yaml:"require_integrity"`
	BytecodeScan     *bool    `yaml:"bytecode_scan"`
	AllowNativeLibs  *bool    `yaml:"allow_native_libs"`
	MaxFileSizeBytes *int64   `yaml:"max_file_size_bytes"`
	TrustedAuthors   []string `yaml:"trusted_authors"`
	AllowedPackages  []string `yaml:"allowed_packages"`
}

const envPrefix = "PLUGINCORE_"

// LoadPolicy builds a Policy for configPath (the file may be absent),
// layering environment variables over the file's fields over the named
// preset ("default", "strict", "permissive").
func LoadPolicy(fsys afero.Fs, configPath string, preset string) (plugin.Policy, error) {
	base := presetPolicy(preset)

	var file PolicyFile
	if configPath != "" {
		data, err := afero.ReadFile(fsys, configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &file); err != nil {
				return plugin.Policy{}, err
			}
		case os.IsNotExist(err):
			// no config file: preset + environment only.
		default:
			return plugin.Policy{}, err
		}
	}
	if file.Preset != "" {
		base = presetPolicy(file.Preset)
	}

	env := viper.New()
	env.SetEnvPrefix(strings.TrimSuffix(envPrefix, "_"))
	env.AutomaticEnv()

	opts := []plugin.PolicyOption{
		plugin.RequireSignature(resolveBool(env, "REQUIRE_SIGNATURE", file.RequireSignature, base.RequireSignature())),
		plugin.RequireIntegrity(resolveBool(env, "REQUIRE_INTEGRITY", file.RequireIntegrity, base.RequireIntegrity())),
		plugin.BytecodeScan(resolveBool(env, "BYTECODE_SCAN", file.BytecodeScan, base.BytecodeScan())),
		plugin.AllowNativeLibs(resolveBool(env, "ALLOW_NATIVE_LIBS", file.AllowNativeLibs, base.AllowNativeLibs())),
		plugin.MaxFileSizeBytes(resolveInt64(env, "MAX_FILE_SIZE_BYTES", file.MaxFileSizeBytes, base.MaxFileSizeBytes())),
	}
	if authors := resolveList(env, "TRUSTED_AUTHORS", file.TrustedAuthors); len(authors) > 0 {
		opts = append(opts, plugin.TrustedAuthors(authors...))
	}
	if pkgs := resolveList(env, "ALLOWED_PACKAGES", file.AllowedPackages); len(pkgs) > 0 {
		opts = append(opts, plugin.AllowedPackages(pkgs...))
	}

	return plugin.NewPolicy(opts...), nil
}

func presetPolicy(name string) plugin.Policy {
	switch strings.ToLower(name) {
	case "strict":
		return plugin.StrictPolicy()
	case "permissive":
		return plugin.PermissivePolicy()
	default:
		return plugin.DefaultPolicy()
	}
}

func resolveBool(env *viper.Viper, envKey string, fileVal *bool, def bool) bool {
	if env.IsSet(envKey) {
		return env.GetBool(envKey)
	}
	if fileVal != nil {
		return *fileVal
	}
	return def
}

func resolveInt64(env *viper.Viper, envKey string, fileVal *int64, def int64) int64 {
	if env.IsSet(envKey) {
		if n, err := strconv.ParseInt(env.GetString(envKey), 10, 64); err == nil {
			return n
		}
	}
	if fileVal != nil {
		return *fileVal
	}
	return def
}

func resolveList(env *viper.Viper, envKey string, fileVal []string) []string {
	if env.IsSet(envKey) {
		return splitNonEmpty(env.GetString(envKey))
	}
	return fileVal
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
