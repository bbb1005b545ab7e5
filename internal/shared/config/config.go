package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"outpost-server/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Spawn     SpawnConfig
	Battle    BattleConfig
	World     WorldConfig
	Crafting  CraftingConfig
	Notify    NotifyConfig
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
}

// SchedulerConfig holds the intervals for the periodic engine tasks.
type SchedulerConfig struct {
	WorldTickInterval    time.Duration
	SpawnTickInterval    time.Duration
	PremiumTickInterval  time.Duration
	SpawnCleanupInterval time.Duration
}

type SpawnConfig struct {
	BaseRate      float64
	Window        time.Duration
	ClaimCooldown time.Duration
	MinCandidates int
	MaxCandidates int
	RarityWeights map[string]int
}

type BattleConfig struct {
	WinChance float64
}

type WorldConfig struct {
	ResourceDeltas    map[string]int
	JobFlipChance     float64
	CollectibleChance float64
}

type CraftingConfig struct {
	QueueMaxLength     int
	FusionShinyChance  float64
	ArtifactProcChance float64
}

type NotifyConfig struct {
	WebhookURL      string
	DefaultChannel  string
	DeliveryTimeout time.Duration
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	config := &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		Scheduler: loadSchedulerConfig(),
		Spawn:     loadSpawnConfig(),
		Battle:    loadBattleConfig(),
		World:     loadWorldConfig(),
		Crafting:  loadCraftingConfig(),
		Notify:    loadNotifyConfig(),
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	readTimeout := utils.GetEnvInt("SERVER_READ_TIMEOUT_SECONDS", 15)
	writeTimeout := utils.GetEnvInt("SERVER_WRITE_TIMEOUT_SECONDS", 15)
	idleTimeout := utils.GetEnvInt("SERVER_IDLE_TIMEOUT_SECONDS", 60)

	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
		IdleTimeout:  time.Duration(idleTimeout) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns := utils.GetEnvInt("DB_MAX_OPEN_CONNS", 25)
	maxIdleConns := utils.GetEnvInt("DB_MAX_IDLE_CONNS", 5)
	connMaxLifetime := utils.GetEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)

	return DatabaseConfig{
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "outpost"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
		MigrationsPath:  utils.GetEnv("DB_MIGRATIONS_PATH", "migrations"),
	}
}

func loadRedisConfig() RedisConfig {
	enabled := utils.GetEnv("REDIS_ENABLED", "true") == "true"
	redisURL := utils.GetEnv("REDIS_URL", "")

	db, _ := strconv.Atoi(utils.GetEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:  enabled,
		URL:      redisURL,
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func loadFrontendConfig() FrontendConfig {
	corsDebug := utils.GetEnv("CORS_DEBUG", "") == "true"

	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: corsDebug,
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	jsonFormat := environment == "production"

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		Format:     utils.GetEnv("LOG_FORMAT", "text"),
		JSONFormat: jsonFormat,
	}
}

func loadRateLimitConfig() RateLimitConfig {
	enabled := utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true"

	return RateLimitConfig{
		Enabled:           enabled,
		RequestsPerSecond: utils.GetEnvFloat("RATE_LIMIT_REQUESTS_PER_SECOND", 10),
		BurstSize:         utils.GetEnvInt("RATE_LIMIT_BURST_SIZE", 20),
	}
}

func loadSchedulerConfig() SchedulerConfig {
	worldTick := utils.GetEnvInt("WORLD_TICK_INTERVAL_SECONDS", 60)
	spawnTick := utils.GetEnvInt("SPAWN_TICK_INTERVAL_SECONDS", 30)
	premiumTick := utils.GetEnvInt("PREMIUM_TICK_INTERVAL_SECONDS", 3600)
	spawnCleanup := utils.GetEnvInt("SPAWN_CLEANUP_INTERVAL_SECONDS", 120)

	return SchedulerConfig{
		WorldTickInterval:    time.Duration(worldTick) * time.Second,
		SpawnTickInterval:    time.Duration(spawnTick) * time.Second,
		PremiumTickInterval:  time.Duration(premiumTick) * time.Second,
		SpawnCleanupInterval: time.Duration(spawnCleanup) * time.Second,
	}
}

func loadSpawnConfig() SpawnConfig {
	window := utils.GetEnvInt("SPAWN_WINDOW_SECONDS", 60)
	cooldown := utils.GetEnvInt("CLAIM_COOLDOWN_SECONDS", 5)

	return SpawnConfig{
		BaseRate:      utils.GetEnvFloat("SPAWN_BASE_RATE", 0.10),
		Window:        time.Duration(window) * time.Second,
		ClaimCooldown: time.Duration(cooldown) * time.Second,
		MinCandidates: utils.GetEnvInt("SPAWN_MIN_CANDIDATES", 1),
		MaxCandidates: utils.GetEnvInt("SPAWN_MAX_CANDIDATES", 3),
		RarityWeights: parseWeights(utils.GetEnv("SPAWN_RARITY_WEIGHTS", "common=10,uncommon=5,rare=2,legendary=1")),
	}
}

func loadBattleConfig() BattleConfig {
	return BattleConfig{
		WinChance: utils.GetEnvFloat("BATTLE_WIN_CHANCE", 0.5),
	}
}

func loadWorldConfig() WorldConfig {
	return WorldConfig{
		ResourceDeltas:    parseWeights(utils.GetEnv("WORLD_RESOURCE_DELTAS", "food=5,wood=2,stone=1")),
		JobFlipChance:     utils.GetEnvFloat("WORLD_JOB_FLIP_CHANCE", 0.03),
		CollectibleChance: utils.GetEnvFloat("WORLD_COLLECTIBLE_CHANCE", 0.005),
	}
}

func loadCraftingConfig() CraftingConfig {
	return CraftingConfig{
		QueueMaxLength:     utils.GetEnvInt("CRAFTING_QUEUE_MAX_LENGTH", 5),
		FusionShinyChance:  utils.GetEnvFloat("CRAFTING_FUSION_SHINY_CHANCE", 0.02),
		ArtifactProcChance: utils.GetEnvFloat("CRAFTING_ARTIFACT_PROC_CHANCE", 0.10),
	}
}

func loadNotifyConfig() NotifyConfig {
	timeout := utils.GetEnvInt("NOTIFY_DELIVERY_TIMEOUT_SECONDS", 5)

	return NotifyConfig{
		WebhookURL:      utils.GetEnv("NOTIFY_WEBHOOK_URL", ""),
		DefaultChannel:  utils.GetEnv("DEFAULT_BROADCAST_CHANNEL", ""),
		DeliveryTimeout: time.Duration(timeout) * time.Second,
	}
}

// parseWeights parses "key=int,key=int" pairs. Malformed entries are skipped.
func parseWeights(raw string) map[string]int {
	weights := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		weights[strings.TrimSpace(key)] = parsed
	}
	return weights
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Server.URL == "" {
		return fmt.Errorf("SERVER_URL is required")
	}

	if c.Spawn.BaseRate < 0 || c.Spawn.BaseRate > 1 {
		return fmt.Errorf("SPAWN_BASE_RATE must be between 0 and 1")
	}

	if c.Battle.WinChance < 0 || c.Battle.WinChance > 1 {
		return fmt.Errorf("BATTLE_WIN_CHANCE must be between 0 and 1")
	}

	if c.Spawn.MinCandidates < 1 || c.Spawn.MaxCandidates < c.Spawn.MinCandidates {
		return fmt.Errorf("spawn candidate bounds are invalid")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
