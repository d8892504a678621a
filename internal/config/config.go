package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/emby-beta-updater/internal/logger"
	"github.com/oshokin/emby-beta-updater/internal/version"
)

// Config holds everything a run needs to know about the target package and its feed.
type Config struct {
	// PackageName is the Debian package kept up to date.
	PackageName string `yaml:"package_name" mapstructure:"package_name"`
	// FeedURL is the GitHub releases endpoint listing upstream builds.
	FeedURL string `yaml:"feed_url" mapstructure:"feed_url"`
	// AssetMarker must appear in the artifact name.
	AssetMarker string `yaml:"asset_marker" mapstructure:"asset_marker"`
	// AssetArch is the architecture and extension suffix the artifact name must contain.
	AssetArch string `yaml:"asset_arch" mapstructure:"asset_arch"`
	// DownloadDir holds the private per-run directories the artifact is downloaded into.
	// It must not be writable by other users.
	DownloadDir string `yaml:"download_dir" mapstructure:"download_dir"`
	// HTTPTimeout bounds the release list request.
	HTTPTimeout time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`
	// DownloadTimeout bounds the artifact download.
	DownloadTimeout time.Duration `yaml:"download_timeout" mapstructure:"download_timeout"`
	// InstallTimeout bounds the package manager install.
	InstallTimeout time.Duration `yaml:"install_timeout" mapstructure:"install_timeout"`
	// LogLevel is used when simulation mode does not force debug output.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	// GitHubToken authenticates feed requests; GITHUB_TOKEN is used when empty.
	GitHubToken string `yaml:"github_token,omitempty" mapstructure:"github_token"`
	// UserAgent is sent with every HTTP request.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

const (
	// DefaultConfigPath is read when no --config flag is given. It may be absent.
	DefaultConfigPath = "/etc/emby-beta-updater/emby-beta-updater.yaml"

	// EnvPrefix prefixes environment overrides, e.g. EMBY_UPDATER_PACKAGE_NAME.
	EnvPrefix = "EMBY_UPDATER"

	// DefaultPackageName is the Emby Server Debian package.
	DefaultPackageName = "emby-server"

	// DefaultFeedURL lists Emby Server releases, betas included.
	DefaultFeedURL = "https://api.github.com/repos/MediaBrowser/Emby.Releases/releases"

	// DefaultAssetMarker identifies the Debian package among the release assets.
	DefaultAssetMarker = "emby-server-deb"

	// DefaultAssetArch selects the amd64 .deb.
	DefaultAssetArch = "amd64.deb"

	// DefaultDownloadDir is owned by root on a standard install, unlike the shared temp directory.
	DefaultDownloadDir = "/var/cache/emby-beta-updater"

	// DefaultHTTPTimeout bounds the release list request.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultDownloadTimeout bounds the artifact download.
	DefaultDownloadTimeout = 30 * time.Minute

	// DefaultInstallTimeout bounds dpkg -i.
	DefaultInstallTimeout = 15 * time.Minute

	// DefaultLogLevel is used when nothing else is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the permission of saved config files, which may hold a token.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRequiredField is returned when a mandatory value is blank.
	errRequiredField = errors.New("value must be provided")
	// errInvalidLogLevel is returned for unknown log levels.
	errInvalidLogLevel = errors.New("unknown log level")
	// errUnsupportedScheme is returned for feed URLs other than http(s).
	errUnsupportedScheme = errors.New("feed url must use http or https")
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PackageName:     DefaultPackageName,
		FeedURL:         DefaultFeedURL,
		AssetMarker:     DefaultAssetMarker,
		AssetArch:       DefaultAssetArch,
		DownloadDir:     DefaultDownloadDir,
		HTTPTimeout:     DefaultHTTPTimeout,
		DownloadTimeout: DefaultDownloadTimeout,
		InstallTimeout:  DefaultInstallTimeout,
		LogLevel:        DefaultLogLevel,
		UserAgent:       version.UserAgent(),
	}
}

// Load builds the configuration from defaults, the YAML file at path and
// EMBY_UPDATER_* environment variables, in increasing priority.
// An empty path means DefaultConfigPath, which is allowed to be missing.
func Load(path string) (*Config, error) {
	optional := path == ""
	if optional {
		path = DefaultConfigPath
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(filepath.Clean(path))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !optional || (!errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound)) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if cfg.GitHubToken == "" {
		cfg.GitHubToken = strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key so that environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("package_name", d.PackageName)
	v.SetDefault("feed_url", d.FeedURL)
	v.SetDefault("asset_marker", d.AssetMarker)
	v.SetDefault("asset_arch", d.AssetArch)
	v.SetDefault("download_dir", d.DownloadDir)
	v.SetDefault("http_timeout", d.HTTPTimeout)
	v.SetDefault("download_timeout", d.DownloadTimeout)
	v.SetDefault("install_timeout", d.InstallTimeout)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("github_token", "")
	v.SetDefault("user_agent", d.UserAgent)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errConfigIsNotSet
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}

	return data, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	// Restrict permissions.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults for optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	cfg.PackageName = strings.TrimSpace(cfg.PackageName)
	cfg.AssetMarker = strings.TrimSpace(cfg.AssetMarker)
	cfg.AssetArch = strings.TrimSpace(cfg.AssetArch)

	for name, value := range map[string]string{
		"package_name": cfg.PackageName,
		"asset_marker": cfg.AssetMarker,
		"asset_arch":   cfg.AssetArch,
		"feed_url":     cfg.FeedURL,
	} {
		if value == "" {
			return fmt.Errorf("%s: %w", name, errRequiredField)
		}
	}

	feedURL, err := url.ParseRequestURI(cfg.FeedURL)
	if err != nil {
		return fmt.Errorf("invalid feed url: %w", err)
	}

	if feedURL.Scheme != "http" && feedURL.Scheme != "https" {
		return fmt.Errorf("%s: %w", cfg.FeedURL, errUnsupportedScheme)
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%q: %w", cfg.LogLevel, errInvalidLogLevel)
	}

	if cfg.DownloadDir == "" {
		cfg.DownloadDir = DefaultDownloadDir
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}

	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = DefaultDownloadTimeout
	}

	if cfg.InstallTimeout <= 0 {
		cfg.InstallTimeout = DefaultInstallTimeout
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = version.UserAgent()
	}

	return nil
}
