package config

// Layered configuration
// defaults -> config.yaml -> .env -> environment aliases -> command-line flags

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig              `mapstructure:"app"`
	Chains   map[string]ChainConfig `mapstructure:"chains"`
	Neynar   NeynarConfig           `mapstructure:"neynar"`
	Telegram TelegramConfig         `mapstructure:"telegram"`
	Identity IdentityConfig         `mapstructure:"identity"`
	Wallet   WalletConfig           `mapstructure:"wallet"`
	Cache    CacheConfig            `mapstructure:"cache"`
	API      APIConfig              `mapstructure:"api"`
}

type AppConfig struct {
	DataDir         string        `mapstructure:"data_dir"`
	LogsDir         string        `mapstructure:"logs_dir"`
	Debug           bool          `mapstructure:"debug"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	LeaderboardSize int           `mapstructure:"leaderboard_size"` // ranks shown
	FetchLimit      int           `mapstructure:"fetch_limit"`      // rows asked from getTopUsers
	ProfileGate     time.Duration `mapstructure:"profile_gate"`
}

type ChainConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	ChainID  int64  `mapstructure:"chain_id"`
	RPCURL   string `mapstructure:"rpc_url"`
	Contract string `mapstructure:"contract"`
	Explorer string `mapstructure:"explorer"`
}

type NeynarConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

type TelegramConfig struct {
	BotToken         string        `mapstructure:"bot_token"`
	ChatID           string        `mapstructure:"chat_id"`
	StatsSendTime    string        `mapstructure:"stats_send_time"` // HH:MM, UTC
	ReminderInterval time.Duration `mapstructure:"reminder_interval"`
}

// IdentityConfig is the wallet the service treats as "connected" for the your-rank row.
type IdentityConfig struct {
	Address     string `mapstructure:"address"`
	FID         uint64 `mapstructure:"fid"`
	Username    string `mapstructure:"username"`
	DisplayName string `mapstructure:"display_name"`
	PfpURL      string `mapstructure:"pfp_url"`
}

type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type APIConfig struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	MetricsUser string `mapstructure:"metrics_user"`
	MetricsPass string `mapstructure:"metrics_pass"`
}

// RegisterFlags adds the persistent flags every command understands.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to config.yaml (default ./config.yaml)")
	fs.String("app.data_dir", "data_out", "Directory for JSON state (env: GM_DATA_DIR)")
	fs.String("app.logs_dir", "logs", "Directory for app.log (env: GM_LOGS_DIR)")
	fs.Bool("app.debug", false, "Write debug lines to app.log (env: GM_DEBUG)")
	fs.Duration("app.poll_interval", 10*time.Second, "Contract poll interval (env: GM_POLL_INTERVAL)")
	fs.Int("app.leaderboard_size", 5, "Ranks shown on the leaderboard (env: GM_LEADERBOARD_SIZE)")
	fs.String("identity.address", "", "Connected wallet address for the your-rank row (env: GM_ADDRESS)")
	fs.String("neynar.api_key", "", "Neynar API key (env: NEYNAR_API_KEY)")
	fs.String("cache.redis_addr", "", "Redis address for a shared profile cache (env: REDIS_ADDR)")
	fs.String("api.listen_addr", ":8080", "API listen address (env: GM_LISTEN_ADDR)")
}

// Load resolves the configuration. fs may be nil when no flags are bound.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	configPath := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			configPath = f.Value.String()
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config.yaml: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setupEnvAliases(v)

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setupEnvAliases(v *viper.Viper) {
	v.BindEnv("app.data_dir", "GM_DATA_DIR")
	v.BindEnv("app.logs_dir", "GM_LOGS_DIR")
	v.BindEnv("app.debug", "GM_DEBUG")
	v.BindEnv("app.poll_interval", "GM_POLL_INTERVAL")
	v.BindEnv("app.leaderboard_size", "GM_LEADERBOARD_SIZE")

	v.BindEnv("chains.base.rpc_url", "BASE_RPC_URL")
	v.BindEnv("chains.celo.rpc_url", "CELO_RPC_URL")

	v.BindEnv("neynar.api_key", "NEYNAR_API_KEY", "NEXT_PUBLIC_NEYNAR_API_KEY")

	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")
	v.BindEnv("telegram.stats_send_time", "STATS_SEND_TIME")

	v.BindEnv("identity.address", "GM_ADDRESS")
	v.BindEnv("identity.fid", "GM_FID")

	v.BindEnv("wallet.private_key", "GM_PRIVATE_KEY")

	v.BindEnv("cache.redis_addr", "REDIS_ADDR")
	v.BindEnv("cache.redis_password", "REDIS_PASSWORD")

	v.BindEnv("api.listen_addr", "GM_LISTEN_ADDR")
	v.BindEnv("api.metrics_user", "METRICS_USER")
	v.BindEnv("api.metrics_pass", "METRICS_PASS")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.data_dir", "data_out")
	v.SetDefault("app.logs_dir", "logs")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.poll_interval", 10*time.Second)
	v.SetDefault("app.leaderboard_size", 5)
	v.SetDefault("app.fetch_limit", 50)
	v.SetDefault("app.profile_gate", 30*time.Second)

	v.SetDefault("chains.base.enabled", true)
	v.SetDefault("chains.base.chain_id", 8453)
	v.SetDefault("chains.base.rpc_url", "https://mainnet.base.org")
	v.SetDefault("chains.base.contract", "0x67FafE153aeB3c2caae7a138C1409aB53f680C75")
	v.SetDefault("chains.base.explorer", "https://basescan.org")

	v.SetDefault("chains.celo.enabled", true)
	v.SetDefault("chains.celo.chain_id", 42220)
	v.SetDefault("chains.celo.rpc_url", "https://forno.celo.org")
	v.SetDefault("chains.celo.contract", "0x0A419eC7Ea59cDa9DE934AD70fAc9f3Ca2960f91")
	v.SetDefault("chains.celo.explorer", "https://celoscan.io")

	v.SetDefault("neynar.base_url", "https://api.neynar.com/v2/farcaster")
	v.SetDefault("neynar.request_timeout", 10*time.Second)
	v.SetDefault("neynar.max_retries", 0)

	v.SetDefault("telegram.stats_send_time", "10:00")
	v.SetDefault("telegram.reminder_interval", 5*time.Minute)

	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", 6*time.Hour)

	v.SetDefault("api.listen_addr", ":8080")
}

func validateConfig(cfg *Config) error {
	if cfg.App.PollInterval < time.Second {
		return fmt.Errorf("app.poll_interval must be at least 1s, got %s", cfg.App.PollInterval)
	}
	if cfg.App.LeaderboardSize <= 0 {
		return fmt.Errorf("app.leaderboard_size must be positive")
	}
	if cfg.App.FetchLimit < cfg.App.LeaderboardSize {
		cfg.App.FetchLimit = cfg.App.LeaderboardSize
	}
	if _, err := time.Parse("15:04", cfg.Telegram.StatsSendTime); err != nil {
		return fmt.Errorf("telegram.stats_send_time must be HH:MM: %w", err)
	}
	if len(cfg.EnabledChains()) == 0 {
		return fmt.Errorf("at least one chain with rpc_url and contract is required")
	}
	return nil
}

// EnabledChains lists usable chain names in sorted order.
func (c *Config) EnabledChains() []string {
	var names []string
	for name, ch := range c.Chains {
		if ch.Enabled && ch.RPCURL != "" && ch.Contract != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ValidateBot checks the settings the Telegram bot needs.
func (c *Config) ValidateBot() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required (env: TELEGRAM_BOT_TOKEN)")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required (env: TELEGRAM_CHAT_ID)")
	}
	return nil
}

// ValidateWallet checks the settings sendGM needs.
func (c *Config) ValidateWallet() error {
	if strings.TrimSpace(c.Wallet.PrivateKey) == "" {
		return fmt.Errorf("wallet.private_key is required (env: GM_PRIVATE_KEY)")
	}
	return nil
}

// EnsureDirs creates the data and logs directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.App.DataDir, c.App.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
