package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	supabase "github.com/supabase-community/supabase-go"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Auth   AuthConfig
	AI     AIConfig
	Chat   ChatConfig
	Log    LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Store:  loadStoreConfig(),
		Auth:   AuthConfig{Provider: strings.ToLower(getEnvOrDefault("AUTH_PROVIDER", AuthSupabase))},
		AI:     ai,
		Chat:   chat,
		Log: LogConfig{
			Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
		},
	}, nil
}

// Validate 检查所选驱动所需的配置是否齐全。
func (c *Config) Validate() error {
	var missing []string

	switch c.Store.Driver {
	case StoreSupabase:
		missing = append(missing, c.Store.missingSupabase()...)
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			missing = append(missing, "SQLITE_PATH")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Auth.Provider {
	case AuthSupabase:
		if c.Store.Driver != StoreSupabase {
			missing = append(missing, c.Store.missingSupabase()...)
		}
	case AuthMemory:
	default:
		return fmt.Errorf("invalid AUTH_PROVIDER %q", c.Auth.Provider)
	}

	switch c.AI.Provider {
	case ProviderOpenAI:
		if c.AI.OpenAIAPIKey == "" {
			missing = append(missing, "OPENROUTER_API_KEY")
		}
	case ProviderArk:
		if !c.AI.ArkEnabled() {
			missing = append(missing, "ARK_API_KEY (or ARK_ACCESS_KEY/ARK_SECRET_KEY) and ARK_MODEL")
		}
	default:
		return fmt.Errorf("invalid LLM_PROVIDER %q", c.AI.Provider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(dedupe(missing), ", "))
	}
	return nil
}

// Warnings 返回不影响启动但值得提示的配置问题。
func (c *Config) Warnings() []string {
	var warnings []string
	key := c.Store.SupabaseKey
	switch {
	case strings.HasPrefix(key, "sb_publishable_"):
		warnings = append(warnings, "SUPABASE_KEY appears to be publishable/anon; backend DB access may fail with 401/403 due to RLS.")
	case key != "" && !strings.HasPrefix(key, "sb_secret_"):
		warnings = append(warnings, "SUPABASE_KEY has an unexpected format. Expected sb_secret_... for backend use.")
	}
	if c.Chat.SerializeSessions {
		warnings = append(warnings, "CHAT_SERIALIZE_SESSIONS only serializes requests within this process.")
	}
	return warnings
}

// Report 以可打印的形式返回关键配置，密钥只显示前缀。
func (c *Config) Report() []any {
	return []any{
		"addr", c.Server.Addr,
		"store_driver", c.Store.Driver,
		"auth_provider", c.Auth.Provider,
		"supabase_url", orNotSet(c.Store.SupabaseURL),
		"supabase_key", MaskSecret(c.Store.SupabaseKey),
		"llm_provider", c.AI.Provider,
		"llm_api_key", MaskSecret(c.AI.APIKey()),
		"model", c.AI.ModelName(),
		"history_limit", c.Chat.HistoryLimit,
	}
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// Store drivers.
const (
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// StoreConfig 描述持久化层配置。
type StoreConfig struct {
	Driver      string
	SupabaseURL string
	SupabaseKey string
	DatabaseURL string
	SQLitePath  string
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		Driver:      strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreSupabase)),
		SupabaseURL: strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseKey: strings.TrimSpace(os.Getenv("SUPABASE_KEY")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "./data/boardroom.db"),
	}
}

func (c StoreConfig) missingSupabase() []string {
	var missing []string
	if c.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if c.SupabaseKey == "" {
		missing = append(missing, "SUPABASE_KEY")
	}
	return missing
}

// NewSupabaseClient 创建 Supabase 客户端，供存储层和鉴权共用。
func (c StoreConfig) NewSupabaseClient() (*supabase.Client, error) {
	if missing := c.missingSupabase(); len(missing) > 0 {
		return nil, fmt.Errorf("supabase credentials missing: %s", strings.Join(missing, ", "))
	}
	return supabase.NewClient(c.SupabaseURL, c.SupabaseKey, nil)
}

// Auth providers.
const (
	AuthSupabase = "supabase"
	AuthMemory   = "memory"
)

// AuthConfig 描述身份认证提供方。
type AuthConfig struct {
	Provider string
}

// LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	ArkAPIKey    string
	ArkAccessKey string
	ArkSecretKey string
	ArkModel     string
	ArkBaseURL   string
	ArkRegion    string

	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// ArkEnabled 表示是否提供了 Ark 所需的密钥。
func (c AIConfig) ArkEnabled() bool {
	return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
}

// ModelName 返回当前提供方使用的模型标识。
func (c AIConfig) ModelName() string {
	if c.Provider == ProviderArk {
		return c.ArkModel
	}
	return c.OpenAIModel
}

// APIKey 返回当前提供方使用的 API Key。
func (c AIConfig) APIKey() string {
	if c.Provider == ProviderArk {
		return c.ArkAPIKey
	}
	return c.OpenAIAPIKey
}

// NewArkChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewArkChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.ArkEnabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.ArkBaseURL,
		Region:      c.ArkRegion,
		APIKey:      c.ArkAPIKey,
		AccessKey:   c.ArkAccessKey,
		SecretKey:   c.ArkSecretKey,
		Model:       c.ArkModel,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("LLM_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("LLM_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("LLM_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:      strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		OpenAIBaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenAIModel:   getEnvOrDefault("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		ArkAPIKey:     strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey:  strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey:  strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkModel:      strings.TrimSpace(os.Getenv("ARK_MODEL")),
		ArkBaseURL:    getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:     getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:   temperature,
		TopP:          topP,
		MaxTokens:     maxTokens,
	}, nil
}

// ChatConfig 描述对话编排相关配置。
type ChatConfig struct {
	HistoryLimit      int
	SerializeSessions bool
}

func loadChatConfig() (ChatConfig, error) {
	historyLimit := 8
	if override, err := parseOptionalIntEnv("CHAT_HISTORY_LIMIT"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			historyLimit = 1
		} else {
			historyLimit = *override
		}
	}

	serialize, err := parseBoolEnv("CHAT_SERIALIZE_SESSIONS", false)
	if err != nil {
		return ChatConfig{}, err
	}

	return ChatConfig{HistoryLimit: historyLimit, SerializeSessions: serialize}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
}

// NewLogger 按配置创建 slog 日志器，未知级别按 info 处理。
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// MaskSecret 只保留密钥前 12 个字符。
func MaskSecret(secret string) string {
	if secret == "" {
		return "[NOT SET]"
	}
	prefix := secret
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	return "SET (" + prefix + "...)"
}

func orNotSet(value string) string {
	if value == "" {
		return "[NOT SET]"
	}
	return value
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
