package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/xenoncommunity/xenon/pkg/util/configutil"
)

// KeyDelimiter separates nested viper keys.
// Dots cannot be used since they appear in forced host names.
const KeyDelimiter = "::"

// NewViper returns a viper instance using KeyDelimiter with the Config
// defaults set. Environment variables join nested keys with underscores.
func NewViper() *viper.Viper {
	v := viper.NewWithOptions(viper.KeyDelimiter(KeyDelimiter))
	v.SetEnvKeyReplacer(strings.NewReplacer(KeyDelimiter, "_"))
	SetDefaults(configutil.SetDefaultFunc(func(key string, value any) {
		v.SetDefault(viperKey(key), value)
	}))
	return v
}

func viperKey(key string) string { return strings.ReplaceAll(key, ".", KeyDelimiter) }

// Load decodes the settings of v, created by NewViper, into a Config.
// Servers, groups and module lists v does not set are taken from DefaultConfig.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	err := v.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		configutil.DurationHook,
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	c.fillCollections(func(key string) bool { return v.IsSet(viperKey(key)) })
	return &c, nil
}

func (c *Config) fillCollections(isSet func(key string) bool) {
	d := DefaultConfig
	if !isSet("servers") {
		c.Servers = maps.Clone(d.Servers)
		if !isSet("try") {
			c.Try = slices.Clone(d.Try)
		}
	}
	if !isSet("groups") {
		c.Groups = maps.Clone(d.Groups)
	}
	if !isSet("xenon.modules.enables") {
		c.Xenon.Modules.Enables = slices.Clone(d.Xenon.Modules.Enables)
	}
	if !isSet("xenon.modules.spyExceptions") {
		c.Xenon.Modules.SpyExceptions = slices.Clone(d.Xenon.Modules.SpyExceptions)
	}
	if !isSet("xenon.commandWhitelist.perGroup") {
		c.Xenon.CommandWhitelist.PerGroup = maps.Clone(d.Xenon.CommandWhitelist.PerGroup)
	}
	for _, m := range []*map[string][]string{&c.ForcedHosts, &c.Permissions, &c.PlayerGroups, &c.Groups} {
		if *m == nil {
			*m = map[string][]string{}
		}
	}
	if c.Servers == nil {
		c.Servers = map[string]string{}
	}
}
