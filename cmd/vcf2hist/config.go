package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vcf2hist/internal/vcf"
)

// configKeys maps every settable key to the function that checks and
// normalizes its value before it is written.
var configKeys = map[string]func(string) (any, error){
	"filter": func(v string) (any, error) {
		f, err := vcf.ParseFilter(v)
		if err != nil {
			return nil, err
		}
		return f.String(), nil
	},
	"pad": parseSwitch,
	"log-level": func(v string) (any, error) {
		lvl, err := zapcore.ParseLevel(v)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q", v)
		}
		return lvl.String(), nil
	},
	"store": func(v string) (any, error) { return v, nil },
}

func parseSwitch(v string) (any, error) {
	switch strings.ToLower(v) {
	case "true", "yes", "on":
		return true, nil
	case "false", "no", "off":
		return false, nil
	}
	return nil, fmt.Errorf("invalid boolean %q (use true or false)", v)
}

func knownKeys() string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// checkConfigValue validates value for key and returns what should be stored.
func checkConfigValue(key, value string) (any, error) {
	check, ok := configKeys[key]
	if !ok {
		return nil, usageErrorf("unknown config key %q (known: %s)", key, knownKeys())
	}
	v, err := check(value)
	if err != nil {
		return nil, &usageError{err: fmt.Errorf("%s: %w", key, err)}
	}
	return v, nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vcf2hist configuration",
		Long: `Show, get, or set configuration values. Config is stored in ~/.vcf2hist.yaml
unless --config names another file.

Known keys: filter, log-level, pad, store. Values are checked before they are
written, so a bad filter or log level is rejected here rather than on the next
conversion.`,
		Example: `  vcf2hist config                        # show all config
  vcf2hist config set filter AF=0.9      # count only alleles annotated AF=0.9
  vcf2hist config set pad false          # stop padding rows at the largest count
  vcf2hist config get store              # get a value`,
		Args: cobra.NoArgs,
		// Only the config is loaded here, so a stored value that breaks
		// logger setup can still be repaired.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfig(cmd.OutOrStdout(), args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return getConfig(cmd.OutOrStdout(), args[0])
		},
	})

	return cmd
}

func showConfig(w io.Writer) error {
	settings := viper.AllSettings()
	if len(settings) == 0 {
		fmt.Fprintln(w, "# No configuration set. Config file: ~/.vcf2hist.yaml")
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func setConfig(w io.Writer, key, value string) error {
	v, err := checkConfigValue(key, value)
	if err != nil {
		return err
	}
	viper.Set(key, v)

	path := viper.ConfigFileUsed()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, ".vcf2hist.yaml")
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %v in %s\n", key, v, path)
	return nil
}

func getConfig(w io.Writer, key string) error {
	if _, ok := configKeys[key]; !ok {
		return usageErrorf("unknown config key %q (known: %s)", key, knownKeys())
	}
	if !viper.IsSet(key) {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, viper.Get(key))
	return nil
}
