package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del copiador.
type Config struct {
	Monitor  MonitorConfig  `yaml:"monitor"`
	Executor ExecutorConfig `yaml:"executor"`
	Wallet   WalletConfig   `yaml:"wallet"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// MonitorConfig controla el sondeo de líderes y el dedup.
type MonitorConfig struct {
	UserAddresses        []string `yaml:"user_addresses"`          // wallets de los líderes a copiar
	FetchIntervalSeconds int      `yaml:"fetch_interval_seconds"`
	TooOldSeconds        int      `yaml:"too_old_seconds"`         // edad máxima de un trade para copiarlo
	DedupTTLSeconds      int      `yaml:"dedup_cache_ttl_seconds"`
	DedupMaxEntries      int      `yaml:"dedup_max_entries"`
	PositionTTLSeconds   int      `yaml:"position_ttl_seconds"`
}

// ExecutorConfig controla el pool de workers y los modos de ejecución.
type ExecutorConfig struct {
	Workers                  int     `yaml:"workers"`
	AggregationEnabled       bool    `yaml:"trade_aggregation_enabled"`
	AggregationWindowSeconds int     `yaml:"trade_aggregation_window_seconds"`
	PaperTradingEnabled      bool    `yaml:"paper_trading_enabled"`
	PaperTradingBalanceUSD   float64 `yaml:"paper_trading_balance_usd"`
	RetryLimit               int     `yaml:"retry_limit"` // reintentos por request HTTP
}

// WalletConfig identifica la wallet propia. La clave privada solo se acepta
// por entorno (PRIVATE_KEY), nunca desde el YAML.
type WalletConfig struct {
	ProxyWallet string `yaml:"proxy_wallet"` // wallet que mantiene las posiciones propias
	PrivateKey  string `yaml:"-"`
	RPCURL      string `yaml:"rpc_url"` // nodo Polygon para consultar el balance USDC
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	DataBase  string `yaml:"data_base"`
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return &cfg, nil
}

// Validate comprueba las keys obligatorias. Las condicionales solo aplican
// cuando la feature correspondiente está activa.
func (c *Config) Validate() error {
	if len(c.Monitor.UserAddresses) == 0 {
		return fmt.Errorf("user_addresses is required")
	}
	if c.Wallet.ProxyWallet == "" {
		return fmt.Errorf("proxy_wallet is required")
	}
	if c.Monitor.TooOldSeconds <= 0 {
		return fmt.Errorf("too_old_seconds is required")
	}
	if c.Executor.AggregationEnabled && c.Executor.AggregationWindowSeconds <= 0 {
		return fmt.Errorf("trade_aggregation_window_seconds is required when aggregation is enabled")
	}
	if c.Executor.PaperTradingEnabled && c.Executor.PaperTradingBalanceUSD <= 0 {
		return fmt.Errorf("paper_trading_balance_usd is required when paper trading is enabled")
	}
	if !c.Executor.PaperTradingEnabled {
		// Modo live: hay que firmar órdenes y leer el balance on-chain.
		if c.Wallet.PrivateKey == "" {
			return fmt.Errorf("PRIVATE_KEY is required for live trading")
		}
		if c.Wallet.RPCURL == "" {
			return fmt.Errorf("rpc_url is required for live trading")
		}
	}
	return nil
}

// FetchInterval devuelve la pausa entre ciclos como time.Duration.
func (c *Config) FetchInterval() time.Duration {
	return time.Duration(c.Monitor.FetchIntervalSeconds) * time.Second
}

// TooOld devuelve la edad máxima aceptada de una activity.
func (c *Config) TooOld() time.Duration {
	return time.Duration(c.Monitor.TooOldSeconds) * time.Second
}

// DedupTTL devuelve la ventana de deduplicación.
func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.Monitor.DedupTTLSeconds) * time.Second
}

// PositionTTL devuelve la vida del cache de posiciones de líderes.
func (c *Config) PositionTTL() time.Duration {
	return time.Duration(c.Monitor.PositionTTLSeconds) * time.Second
}

// AggregationWindow devuelve la ventana de agregación de BUYs pequeños.
func (c *Config) AggregationWindow() time.Duration {
	return time.Duration(c.Executor.AggregationWindowSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("USER_ADDRESSES"); v != "" {
		cfg.Monitor.UserAddresses = splitAddresses(v)
	}
	if v := os.Getenv("FETCH_INTERVAL"); v != "" {
		envInt(v, &cfg.Monitor.FetchIntervalSeconds)
	}
	if v := os.Getenv("TOO_OLD_SECONDS"); v != "" {
		envInt(v, &cfg.Monitor.TooOldSeconds)
	}
	if v := os.Getenv("DEDUP_CACHE_TTL_SECONDS"); v != "" {
		envInt(v, &cfg.Monitor.DedupTTLSeconds)
	}
	if v := os.Getenv("TRADE_AGGREGATION_ENABLED"); v != "" {
		envBool(v, &cfg.Executor.AggregationEnabled)
	}
	if v := os.Getenv("TRADE_AGGREGATION_WINDOW_SECONDS"); v != "" {
		envInt(v, &cfg.Executor.AggregationWindowSeconds)
	}
	if v := os.Getenv("PAPER_TRADING_ENABLED"); v != "" {
		envBool(v, &cfg.Executor.PaperTradingEnabled)
	}
	if v := os.Getenv("PAPER_TRADING_BALANCE_USD"); v != "" {
		envFloat(v, &cfg.Executor.PaperTradingBalanceUSD)
	}
	if v := os.Getenv("RETRY_LIMIT"); v != "" {
		envInt(v, &cfg.Executor.RetryLimit)
	}
	if v := os.Getenv("PROXY_WALLET"); v != "" {
		cfg.Wallet.ProxyWallet = v
	}
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		cfg.Wallet.PrivateKey = v
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Wallet.RPCURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores opcionales tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Monitor.FetchIntervalSeconds <= 0 {
		cfg.Monitor.FetchIntervalSeconds = 2
	}
	if cfg.Monitor.DedupTTLSeconds <= 0 {
		cfg.Monitor.DedupTTLSeconds = 60
	}
	if cfg.Monitor.PositionTTLSeconds <= 0 {
		cfg.Monitor.PositionTTLSeconds = 60
	}
	if cfg.Executor.Workers <= 0 {
		cfg.Executor.Workers = 2
	}
	if cfg.Executor.RetryLimit <= 0 {
		cfg.Executor.RetryLimit = 3
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "copytrader.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// splitAddresses parte una lista separada por comas, ignorando espacios y
// entradas vacías.
func splitAddresses(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(v string, dst *int) {
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func envFloat(v string, dst *float64) {
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}

func envBool(v string, dst *bool) {
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}
