package main

const (
	defaultConfigPath    = "/etc/logtool/config.yml"
	defaultJournalctlBin = "journalctl"
	defaultBindHost      = "127.0.0.1"
	defaultAPIPort       = 3010
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the daemon entrypoint.
type appConfig struct {
	SocketPath    string `mapstructure:"socket-path"`
	MaxClients    int    `mapstructure:"max-clients"`
	JournalctlBin string `mapstructure:"journalctl-bin"`
	APIEnabled    bool   `mapstructure:"api-enabled"`
	APIPort       int    `mapstructure:"api-port"`
	APIAddr       string `mapstructure:"api-addr"`
	ConfigPath    string `mapstructure:"-"` // not from config file
}
