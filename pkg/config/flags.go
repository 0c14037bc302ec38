package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// (e.g. --relay-target on "chatrelay chat") cannot drift between commands.
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "relay.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen          = "listen"
	FlagPath            = "path"
	FlagBackend         = "backend"
	FlagBaseURL         = "base-url"
	FlagModel           = "model"
	FlagTimeout         = "timeout"
	FlagMaxOutputTokens = "max-output-tokens"
	FlagRelayTarget     = "relay-target"
	FlagBearerToken     = "bearer-token"
	FlagEventStream     = "eventstream"
	FlagBrokers         = "brokers"
	FlagTopic           = "topic"
)

// Flags is the registry of every flag that maps to a config key.
var Flags = FlagSet{
	FlagListen: {
		Name: "listen", Shorthand: "l", ViperKey: "relay.listen",
		Description: "Address for the relay to listen on",
	},
	FlagPath: {
		Name: "path", ViperKey: "relay.path",
		Description: "HTTP path the chat endpoint is mounted on",
	},
	FlagBackend: {
		Name: "backend", Shorthand: "b", ViperKey: "relay.backend",
		Description: "Upstream client implementation (http, genai)",
	},
	FlagBaseURL: {
		Name: "base-url", Shorthand: "u", ViperKey: "gemini.base_url",
		Description: "Gemini API base URL",
	},
	FlagModel: {
		Name: "model", Shorthand: "m", ViperKey: "gemini.model",
		Description: "Gemini model name",
	},
	FlagTimeout: {
		Name: "timeout", ViperKey: "gemini.timeout",
		Description: "Upper bound for one upstream call (e.g. 5m)",
	},
	FlagMaxOutputTokens: {
		Name: "max-output-tokens", ViperKey: "gemini.max_output_tokens",
		Description: "Maximum tokens generated per reply",
	},
	FlagRelayTarget: {
		Name: "relay-target", Shorthand: "r", ViperKey: "client.relay_target",
		Description: "Relay chat endpoint URL",
	},
	FlagBearerToken: {
		Name: "bearer-token", ViperKey: "client.bearer_token",
		Description: "Bearer token sent with every chat request",
	},
	FlagEventStream: {
		Name: "eventstream", ViperKey: "eventstream.provider",
		Description: "Where completed exchanges are published (nop, kafka)",
	},
	FlagBrokers: {
		Name: "brokers", ViperKey: "eventstream.brokers",
		Description: "Comma-separated Kafka broker addresses",
	},
	FlagTopic: {
		Name: "topic", ViperKey: "eventstream.topic",
		Description: "Kafka topic for exchange events",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
