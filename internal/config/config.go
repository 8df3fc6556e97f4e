// Package config loads command line flags and their environment variable
// counterparts.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Bind returns a viper instance reading fs and, for every flag,
// the environment variable PREFIX_FLAG_NAME.
func Bind(fs *pflag.FlagSet, prefix string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}
