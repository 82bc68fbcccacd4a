package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/joseph-ayodele/pdf-field-extractor/constants"
)

const (
	EnvPrefix = "PDFX"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Config holds all application configuration
type Config struct {
	LLM            LLMConfig
	Schema         SchemaConfig
	Layout         LayoutConfig
	OCR            OCRConfig
	Output         OutputConfig
	Ledger         LedgerConfig
	Batch          BatchConfig
	Log            LogConfig
	ValidationMode bool
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	RatePerSec  float64
	CacheDir    string
	Coordinates bool
	// Strategy is resolved once from Model unless set explicitly.
	Strategy constants.ModelStrategy
}

// SchemaConfig selects where the extraction schema comes from.
type SchemaConfig struct {
	TemplatePath string
	WorkbookPath string
	Sheet        string
	DocumentType string
	Graph        GraphConfig
}

// GraphConfig holds credentials for a remote workbook.
type GraphConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	BaseURL      string
	DriveID      string
	ItemID       string
	Worksheet    string
}

// Enabled reports whether a remote workbook is configured.
func (g GraphConfig) Enabled() bool {
	return g.ClientID != "" && g.ItemID != ""
}

// LayoutConfig tunes glyph grouping.
type LayoutConfig struct {
	RowTolerance float64
	WordSpace    float64
	ColumnGap    float64
	OCRFallback  bool
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	TessdataDir string
	Language    string
	DPI         int
	Timeout     time.Duration
}

// OutputConfig controls where results go.
type OutputConfig struct {
	Dir          string
	Annotate     bool
	SkipExisting bool
}

// LedgerConfig holds database-related configuration
type LedgerConfig struct {
	Driver string
	DSN    string
}

// BatchConfig controls the worker queue.
type BatchConfig struct {
	Workers     int
	QueueSize   int
	DocTimeout  time.Duration
	Watch       bool
	WatchSettle time.Duration
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0,
			MaxTokens:   4096,
			Timeout:     90 * time.Second,
			RatePerSec:  2,
			Coordinates: true,
		},
		Schema: SchemaConfig{
			Sheet:        "Sheet1",
			DocumentType: constants.DefaultDocumentType,
			Graph: GraphConfig{
				BaseURL:   "https://graph.microsoft.com/v1.0",
				Worksheet: "Sheet1",
			},
		},
		Layout: LayoutConfig{
			RowTolerance: 3.0,
			WordSpace:    0.3,
			ColumnGap:    2.0,
			OCRFallback:  true,
		},
		OCR: OCRConfig{
			Language: "eng",
			DPI:      300,
			Timeout:  2 * time.Minute,
		},
		Output: OutputConfig{
			Dir:          "./output",
			Annotate:     true,
			SkipExisting: true,
		},
		Ledger: LedgerConfig{
			Driver: DriverSQLite,
			DSN:    "file:ledger.db?_pragma=busy_timeout(5000)",
		},
		Batch: BatchConfig{
			Workers:     1,
			QueueSize:   64,
			DocTimeout:  5 * time.Minute,
			WatchSettle: 750 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// binding maps a viper key to the flag that can override it.
type binding struct {
	key  string
	flag string
}

var bindings = []binding{
	{"llm.provider", "provider"},
	{"llm.model", "model"},
	{"llm.api_key", "api-key"},
	{"llm.base_url", "base-url"},
	{"llm.temperature", "temperature"},
	{"llm.max_tokens", "max-tokens"},
	{"llm.timeout", "llm-timeout"},
	{"llm.rate", "llm-rate"},
	{"llm.cache_dir", "cache-dir"},
	{"llm.coordinates", "coordinates"},
	{"llm.strategy", "strategy"},
	{"schema.template", "schema"},
	{"schema.workbook", "workbook"},
	{"schema.sheet", "sheet"},
	{"schema.document_type", "document-type"},
	{"output.dir", "output"},
	{"output.annotate", "annotate"},
	{"output.skip_existing", "skip-existing"},
	{"ledger.driver", "ledger-driver"},
	{"ledger.dsn", "ledger-dsn"},
	{"batch.workers", "workers"},
	{"batch.doc_timeout", "doc-timeout"},
	{"batch.watch", "watch"},
	{"log.level", "log-level"},
	{"log.format", "log-format"},
	{"validation_mode", "validation"},
}

// RegisterFlags defines the shared flags on fs. Binaries add their own flags before calling LoadConfig.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("config", "", "optional YAML config file")
	fs.String("provider", d.LLM.Provider, "LLM provider: openai, anthropic or gemini")
	fs.String("model", d.LLM.Model, "model identifier (ft: prefix selects the fine-tuned prompt)")
	fs.String("api-key", "", "LLM API key (defaults to OPENAI_API_KEY / ANTHROPIC_API_KEY / GEMINI_API_KEY)")
	fs.String("base-url", "", "override the provider base URL")
	fs.Float64("temperature", d.LLM.Temperature, "sampling temperature")
	fs.Int("max-tokens", d.LLM.MaxTokens, "completion token cap")
	fs.Duration("llm-timeout", d.LLM.Timeout, "timeout per completion call")
	fs.Float64("llm-rate", d.LLM.RatePerSec, "completion calls per second (0 disables limiting)")
	fs.String("cache-dir", "", "directory for the completion cache (empty disables caching)")
	fs.Bool("coordinates", d.LLM.Coordinates, "ask the model to echo coordinate markers")
	fs.String("strategy", "", "force prompt strategy: base or fine_tuned")
	fs.String("schema", "", "static schema template (.json, .yaml)")
	fs.String("workbook", "", "local .xlsx workbook holding the 3-row schema header")
	fs.String("sheet", d.Schema.Sheet, "worksheet name inside --workbook")
	fs.String("document-type", d.Schema.DocumentType, "document type for workbook schemas")
	fs.String("output", d.Output.Dir, "output directory")
	fs.Bool("annotate", d.Output.Annotate, "write <name>_annotated.pdf next to the JSON result")
	fs.Bool("skip-existing", d.Output.SkipExisting, "skip documents whose outputs already exist")
	fs.String("ledger-driver", d.Ledger.Driver, "ledger database driver: sqlite or pgx")
	fs.String("ledger-dsn", d.Ledger.DSN, "ledger database DSN (empty disables the ledger)")
	fs.Int("workers", d.Batch.Workers, "documents processed concurrently")
	fs.Duration("doc-timeout", d.Batch.DocTimeout, "timeout per document")
	fs.Bool("watch", false, "keep running and process PDFs dropped into the input directory")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "log format (text, json)")
	fs.Bool("validation", false, "validation mode: no layout positions, no coordinates, no annotation")
}

// LoadConfig parses args into fs, then layers defaults, config file, env (PDFX_*) and flags.
func LoadConfig(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, NewAppError(CodeConfig, "parse flags", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	for _, b := range bindings {
		if f := fs.Lookup(b.flag); f != nil {
			_ = v.BindPFlag(b.key, f)
		}
	}

	if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
		v.SetConfigFile(f.Value.String())
		if err := v.ReadInConfig(); err != nil {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
	}

	cfg := populate(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.rate", d.LLM.RatePerSec)
	v.SetDefault("llm.coordinates", d.LLM.Coordinates)
	v.SetDefault("schema.sheet", d.Schema.Sheet)
	v.SetDefault("schema.document_type", d.Schema.DocumentType)
	v.SetDefault("schema.graph.base_url", d.Schema.Graph.BaseURL)
	v.SetDefault("schema.graph.worksheet", d.Schema.Graph.Worksheet)
	v.SetDefault("layout.row_tolerance", d.Layout.RowTolerance)
	v.SetDefault("layout.word_space", d.Layout.WordSpace)
	v.SetDefault("layout.column_gap", d.Layout.ColumnGap)
	v.SetDefault("layout.ocr_fallback", d.Layout.OCRFallback)
	v.SetDefault("ocr.language", d.OCR.Language)
	v.SetDefault("ocr.dpi", d.OCR.DPI)
	v.SetDefault("ocr.timeout", d.OCR.Timeout)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.annotate", d.Output.Annotate)
	v.SetDefault("output.skip_existing", d.Output.SkipExisting)
	v.SetDefault("ledger.driver", d.Ledger.Driver)
	v.SetDefault("ledger.dsn", d.Ledger.DSN)
	v.SetDefault("batch.workers", d.Batch.Workers)
	v.SetDefault("batch.queue_size", d.Batch.QueueSize)
	v.SetDefault("batch.doc_timeout", d.Batch.DocTimeout)
	v.SetDefault("batch.watch_settle", d.Batch.WatchSettle)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func populate(v *viper.Viper) *Config {
	cfg := &Config{
		LLM: LLMConfig{
			Provider:    strings.ToLower(v.GetString("llm.provider")),
			Model:       v.GetString("llm.model"),
			APIKey:      v.GetString("llm.api_key"),
			BaseURL:     v.GetString("llm.base_url"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			Timeout:     v.GetDuration("llm.timeout"),
			RatePerSec:  v.GetFloat64("llm.rate"),
			CacheDir:    v.GetString("llm.cache_dir"),
			Coordinates: v.GetBool("llm.coordinates"),
		},
		Schema: SchemaConfig{
			TemplatePath: v.GetString("schema.template"),
			WorkbookPath: v.GetString("schema.workbook"),
			Sheet:        v.GetString("schema.sheet"),
			DocumentType: v.GetString("schema.document_type"),
			Graph: GraphConfig{
				TenantID:     v.GetString("schema.graph.tenant_id"),
				ClientID:     v.GetString("schema.graph.client_id"),
				ClientSecret: v.GetString("schema.graph.client_secret"),
				BaseURL:      v.GetString("schema.graph.base_url"),
				DriveID:      v.GetString("schema.graph.drive_id"),
				ItemID:       v.GetString("schema.graph.item_id"),
				Worksheet:    v.GetString("schema.graph.worksheet"),
			},
		},
		Layout: LayoutConfig{
			RowTolerance: v.GetFloat64("layout.row_tolerance"),
			WordSpace:    v.GetFloat64("layout.word_space"),
			ColumnGap:    v.GetFloat64("layout.column_gap"),
			OCRFallback:  v.GetBool("layout.ocr_fallback"),
		},
		OCR: OCRConfig{
			TessdataDir: v.GetString("ocr.tessdata_dir"),
			Language:    v.GetString("ocr.language"),
			DPI:         v.GetInt("ocr.dpi"),
			Timeout:     v.GetDuration("ocr.timeout"),
		},
		Output: OutputConfig{
			Dir:          v.GetString("output.dir"),
			Annotate:     v.GetBool("output.annotate"),
			SkipExisting: v.GetBool("output.skip_existing"),
		},
		Ledger: LedgerConfig{
			Driver: strings.ToLower(v.GetString("ledger.driver")),
			DSN:    v.GetString("ledger.dsn"),
		},
		Batch: BatchConfig{
			Workers:     v.GetInt("batch.workers"),
			QueueSize:   v.GetInt("batch.queue_size"),
			DocTimeout:  v.GetDuration("batch.doc_timeout"),
			Watch:       v.GetBool("batch.watch"),
			WatchSettle: v.GetDuration("batch.watch_settle"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		ValidationMode: v.GetBool("validation_mode"),
	}

	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case ProviderAnthropic:
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case ProviderGemini:
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	switch constants.ModelStrategy(strings.ToLower(v.GetString("llm.strategy"))) {
	case constants.StrategyBase:
		cfg.LLM.Strategy = constants.StrategyBase
	case constants.StrategyFineTuned:
		cfg.LLM.Strategy = constants.StrategyFineTuned
	default:
		cfg.LLM.Strategy = constants.StrategyForModel(cfg.LLM.Model)
	}

	// Validation runs never ask for coordinates and never annotate.
	if cfg.ValidationMode {
		cfg.LLM.Coordinates = false
		cfg.Output.Annotate = false
	}
	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("llm.provider", c.LLM.Provider, OneOf(ProviderOpenAI, ProviderAnthropic, ProviderGemini))
	v.Field("llm.model", c.LLM.Model, Required)
	v.Field("llm.temperature", c.LLM.Temperature, NonNegative)
	v.Field("llm.max_tokens", c.LLM.MaxTokens, Positive)
	v.Field("llm.rate", c.LLM.RatePerSec, NonNegative)
	v.Field("ledger.driver", c.Ledger.Driver, OneOf(DriverSQLite, DriverPostgres))
	v.Field("batch.workers", c.Batch.Workers, Positive)
	v.Field("log.level", c.Log.Level, OneOf("debug", "info", "warn", "error"))
	v.Field("log.format", c.Log.Format, OneOf("text", "json"))
	return v.AsAppError(CodeConfig)
}

// ValidateLLM is run by binaries that call the completion service.
func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		return NewAppError(CodeConfig, fmt.Sprintf("API key is required for provider %q", c.LLM.Provider), ErrInvalidInput)
	}
	return nil
}

// ValidateSchemaSource requires exactly one schema source.
func (c *Config) ValidateSchemaSource() error {
	n := 0
	for _, set := range []bool{c.Schema.TemplatePath != "", c.Schema.WorkbookPath != "", c.Schema.Graph.Enabled()} {
		if set {
			n++
		}
	}
	if n != 1 {
		return NewAppError(CodeConfig, "exactly one of --schema, --workbook or schema.graph must be set", ErrInvalidInput)
	}
	return nil
}
