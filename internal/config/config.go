package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jscyril/moz/internal/filesystem"
	"github.com/jscyril/moz/internal/where"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvKeyReplacer maps config keys to environment variable names
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// Config holds the typed view of the settings used by the player
type Config struct {
	Audio        AudioConfig
	Cache        CacheConfig
	Stream       StreamConfig
	Search       SearchConfig
	Library      LibraryConfig
	Logs         LogConfig
	TickInterval time.Duration
}

// AudioConfig configures the output and decoders
type AudioConfig struct {
	Backend      string
	Buffer       time.Duration
	UnderrunWait time.Duration
	PipeOpen     time.Duration
}

// CacheConfig configures the stream cache
type CacheConfig struct {
	Dir       string
	Container string
}

// StreamConfig configures the producer chain
type StreamConfig struct {
	Fetcher    string
	Transcoder string
	Format     string
	Codec      string
	Bitrate    string
	Site       string
	PreRoll    time.Duration
	Settle     time.Duration
	Grace      time.Duration
	SampleRate int
}

// SearchConfig configures online search
type SearchConfig struct {
	Limit    int
	Lifetime time.Duration
}

// LibraryConfig configures the offline browser
type LibraryConfig struct {
	Dir     string
	Workers int
}

// LogConfig configures logging
type LogConfig struct {
	Write bool
	Level string
	JSON  bool
}

// Setup registers defaults, loads .env, binds MOZ_* variables and reads the config file if present
func Setup() error {
	// A missing .env is the common case
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	viper.SetConfigName(where.App)
	viper.SetConfigType("json")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(where.App)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	viper.AutomaticEnv()

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load builds a Config from the current viper state
func Load() *Config {
	ms := func(key string) time.Duration {
		return time.Duration(viper.GetInt(key)) * time.Millisecond
	}

	return &Config{
		Audio: AudioConfig{
			Backend:      viper.GetString(AudioBackend),
			Buffer:       ms(AudioBufferMs),
			UnderrunWait: ms(AudioUnderrunMs),
			PipeOpen:     ms(AudioPipeOpenMs),
		},
		Cache: CacheConfig{
			Dir:       ExpandHome(viper.GetString(CacheDir)),
			Container: viper.GetString(CacheContainer),
		},
		Stream: StreamConfig{
			Fetcher:    viper.GetString(StreamFetcher),
			Transcoder: viper.GetString(StreamTranscoder),
			Format:     viper.GetString(StreamFormat),
			Codec:      viper.GetString(StreamCodec),
			Bitrate:    viper.GetString(StreamBitrate),
			Site:       viper.GetString(StreamSite),
			PreRoll:    ms(StreamPrerollMs),
			Settle:     ms(StreamSettleMs),
			Grace:      ms(StreamGraceMs),
			SampleRate: viper.GetInt(StreamSampleRate),
		},
		Search: SearchConfig{
			Limit:    viper.GetInt(SearchLimit),
			Lifetime: time.Duration(viper.GetInt(SearchCacheHours)) * time.Hour,
		},
		Library: LibraryConfig{
			Dir:     ExpandHome(viper.GetString(LibraryDir)),
			Workers: viper.GetInt(LibraryWorkers),
		},
		Logs: LogConfig{
			Write: viper.GetBool(LogsWrite),
			Level: viper.GetString(LogsLevel),
			JSON:  viper.GetBool(LogsJSON),
		},
		TickInterval: ms(UITickMs),
	}
}

// Settings returns the effective value of every registered key
func Settings() map[string]any {
	out := make(map[string]any, len(Default))
	for _, k := range Keys() {
		out[k] = viper.Get(k)
	}
	return out
}

// SaveDefault writes the default settings to path unless the file already exists
func SaveDefault(path string) error {
	fs := filesystem.API()
	if exists, err := fs.Exists(path); err != nil {
		return fmt.Errorf("stat config file: %w", err)
	} else if exists {
		return os.ErrExist
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	values := make(map[string]any, len(Default))
	for k, f := range Default {
		values[k] = f.Value
	}
	data, err := json.MarshalIndent(nest(values), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := fs.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// nest turns dotted keys into nested objects so viper reads them back
func nest(flat map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range flat {
		parts := strings.Split(k, ".")
		m := out
		for _, p := range parts[:len(parts)-1] {
			child, ok := m[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				m[p] = child
			}
			m = child
		}
		m[parts[len(parts)-1]] = v
	}
	return out
}

// ExpandHome replaces a leading ~ with the home directory
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
