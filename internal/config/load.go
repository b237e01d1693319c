package config

// Load builds Settings from defaults, the process environment and args, in
// that order. The returned slice holds the positional arguments, which are
// config overrides.
func Load(args []string) (*Settings, []string, error) {
	return LoadEnv("hydrant", args, nil)
}

// LoadEnv is Load for a named program with an explicit environment. A nil
// environ reads the process environment.
func LoadEnv(name string, args []string, environ map[string]string) (*Settings, []string, error) {
	return newSettingsBuilder().
		withDefaults().
		withEnv(environ).
		withFlags(name, args).
		build()
}
