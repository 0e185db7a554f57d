package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// StorageDisabled como dsn desactiva el log de eventos persistente.
const StorageDisabled = "none"

// Config es la configuración completa de polygate.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Market  MarketConfig  `yaml:"market"`
	API     APIConfig     `yaml:"api"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig controla detección, aprobación y tracking.
type EngineConfig struct {
	Threshold           float64       `yaml:"threshold"`
	TradeSize           float64       `yaml:"trade_size"`  // shares por orden
	LimitPrice          float64       `yaml:"limit_price"` // 0 = usar la probabilidad observada
	PollInterval        time.Duration `yaml:"poll_interval"`
	Window              time.Duration `yaml:"window"`
	AutoApprove         bool          `yaml:"auto_approve"`
	MaxConcurrentChecks int           `yaml:"max_concurrent_checks"`
}

// MarketConfig selecciona qué mercados se escanean.
type MarketConfig struct {
	EventSlug string   `yaml:"event_slug"`
	Keywords  []string `yaml:"keywords"`
	PageLimit int      `yaml:"page_limit"`
}

// APIConfig contiene los base URLs y la identidad de la wallet.
type APIConfig struct {
	CLOBBase      string `yaml:"clob_base"`
	GammaBase     string `yaml:"gamma_base"`
	ChainID       int64  `yaml:"chain_id"`
	SignatureType int    `yaml:"signature_type"` // 0 EOA | 1 proxy | 2 gnosis safe
	ProxyAddress  string `yaml:"proxy_address"`
	PrivateKey    string `yaml:"private_key"`
	RPCURL        string `yaml:"rpc_url"`
}

// ServerConfig controla la API HTTP.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StorageConfig controla dónde se persisten los eventos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:" o "none"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`   // opcional, con rotación
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Un YAML inexistente no es error: se puede configurar todo por entorno.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// Validate comprueba los rangos. requireKey exige clave privada (modo trading).
func (c *Config) Validate(requireKey bool) error {
	var errs []error
	if math.IsNaN(c.Engine.Threshold) || c.Engine.Threshold <= 0 || c.Engine.Threshold > 1 {
		errs = append(errs, fmt.Errorf("engine.threshold %v out of (0,1]", c.Engine.Threshold))
	}
	if math.IsNaN(c.Engine.TradeSize) || math.IsInf(c.Engine.TradeSize, 0) || c.Engine.TradeSize <= 0 {
		errs = append(errs, fmt.Errorf("engine.trade_size must be > 0"))
	}
	if math.IsNaN(c.Engine.LimitPrice) || c.Engine.LimitPrice < 0 || c.Engine.LimitPrice >= 1 {
		errs = append(errs, fmt.Errorf("engine.limit_price %v out of [0,1)", c.Engine.LimitPrice))
	}
	if c.Engine.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("engine.poll_interval must be > 0"))
	}
	if c.API.SignatureType < 0 || c.API.SignatureType > 2 {
		errs = append(errs, fmt.Errorf("api.signature_type %d unknown", c.API.SignatureType))
	}
	if c.API.SignatureType != 0 && c.API.ProxyAddress == "" {
		errs = append(errs, fmt.Errorf("api.proxy_address required for signature_type %d", c.API.SignatureType))
	}
	if requireKey && c.API.PrivateKey == "" {
		errs = append(errs, fmt.Errorf("api.private_key (PRIVATE_KEY) is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config.Validate: %w", errors.Join(errs...))
	}
	return nil
}

// StorageEnabled indica si hay que abrir el log de eventos.
func (c *Config) StorageEnabled() bool {
	return c.Storage.DSN != StorageDisabled
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"PRIVATE_KEY":              &cfg.API.PrivateKey,
		"CLOB_API_URL":             &cfg.API.CLOBBase,
		"GAMMA_API_URL":            &cfg.API.GammaBase,
		"POLYMARKET_PROXY_ADDRESS": &cfg.API.ProxyAddress,
		"RPC_URL":                  &cfg.API.RPCURL,
		"EVENT_SLUG":               &cfg.Market.EventSlug,
		"DB_PATH":                  &cfg.Storage.DSN,
		"LOG_LEVEL":                &cfg.Log.Level,
		"LOG_FORMAT":               &cfg.Log.Format,
		"LOG_FILE":                 &cfg.Log.File,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("MARKET_KEYWORDS"); v != "" {
		cfg.Market.Keywords = nil
		for _, kw := range strings.Split(v, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				cfg.Market.Keywords = append(cfg.Market.Keywords, kw)
			}
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + strings.TrimPrefix(v, ":")
	}

	floats := map[string]*float64{
		"PROBABILITY_THRESHOLD": &cfg.Engine.Threshold,
		"TRADE_SIZE":            &cfg.Engine.TradeSize,
	}
	for key, dst := range floats {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			*dst = f
		}
	}

	if v := os.Getenv("POLLING_INTERVAL"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env POLLING_INTERVAL: %w", err)
		}
		cfg.Engine.PollInterval = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("env CHAIN_ID: %w", err)
		}
		cfg.API.ChainID = id
	}
	if v := os.Getenv("SIGNATURE_TYPE"); v != "" {
		st, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env SIGNATURE_TYPE: %w", err)
		}
		cfg.API.SignatureType = st
	}
	if v := os.Getenv("AUTO_TRADING_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("env AUTO_TRADING_ENABLED: %w", err)
		}
		cfg.Engine.AutoApprove = b
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.Threshold == 0 {
		cfg.Engine.Threshold = 0.95
	}
	if cfg.Engine.TradeSize == 0 {
		cfg.Engine.TradeSize = 5
	}
	if cfg.Engine.PollInterval == 0 {
		cfg.Engine.PollInterval = 30 * time.Second
	}
	if cfg.Engine.Window <= 0 {
		cfg.Engine.Window = 15 * time.Minute
	}
	if cfg.Engine.MaxConcurrentChecks <= 0 {
		cfg.Engine.MaxConcurrentChecks = 8
	}
	if cfg.Market.PageLimit <= 0 {
		cfg.Market.PageLimit = 100
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.ChainID == 0 {
		cfg.API.ChainID = 137
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polygate.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
