package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Store        StoreConfig        `mapstructure:"store"`
	DB           DBConfig           `mapstructure:"db"`
	Remote       RemoteConfig       `mapstructure:"remote"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Wallet       WalletConfig       `mapstructure:"wallet"`
	Price        PriceConfig        `mapstructure:"price"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Admin        AdminConfig        `mapstructure:"admin"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	HttpPort string `mapstructure:"http_port"`
	Currency string `mapstructure:"currency"` // 本地货币符号, 默认 ₦
}

// StoreConfig 本地持久化 (Durable Store)
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	Path   string `mapstructure:"path"`   // sqlite 文件路径
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// DSN 构造 postgres 连接串
func (c DBConfig) DSN() string {
	return "host=" + c.Host + " user=" + c.User + " password=" + c.Password +
		" dbname=" + c.Name + " port=" + c.Port + " sslmode=disable TimeZone=UTC"
}

// URL 构造 golang-migrate 使用的 postgres URL
func (c DBConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.Name + "?sslmode=disable"
}

// RemoteConfig 远端同步目标
type RemoteConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" | "postgres" | "kafka" | "redis"
	Path   string `mapstructure:"path"`   // driver=sqlite 时的文件
	Topic  string `mapstructure:"topic"`  // driver=kafka/redis 时的主题
	Group  string `mapstructure:"group"`  // sync-sink 消费组
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type WalletConfig struct {
	Mode            string `mapstructure:"mode"` // "rpc" or "simulated"
	RpcUrl          string `mapstructure:"rpc_url"`
	ChainID         int64  `mapstructure:"chain_id"`
	KeystorePath    string `mapstructure:"keystore_path"`
	Password        string `mapstructure:"password"` // 通常通过环境变量 WALLET_PASSWORD 传入
	ContractAddress string `mapstructure:"contract_address"`
	GasLimit        uint64 `mapstructure:"gas_limit"`
}

type PriceConfig struct {
	Provider   string        `mapstructure:"provider"` // "coingecko" or "fixed"
	URL        string        `mapstructure:"url"`
	TokenID    string        `mapstructure:"token_id"`
	VsCurrency string        `mapstructure:"vs_currency"`
	Fixed      string        `mapstructure:"fixed"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type SyncConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type ConnectivityConfig struct {
	Probe    string        `mapstructure:"probe"` // "http" | "chain" | "static"
	URL      string        `mapstructure:"url"`
	Interval time.Duration `mapstructure:"interval"`
}

type AdminConfig struct {
	DefaultPassword string `mapstructure:"default_password"`
}

var Global Config

func Init() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// 环境变量: SYNC_INTERVAL=10s 覆盖 sync.interval
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			log.Fatalf("Fatal error config file: %s \n", err)
		}
	}

	if err := viper.Unmarshal(&Global); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.http_port", "8080")
	viper.SetDefault("app.currency", "₦")

	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.path", "trevpay.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "trev_user")
	viper.SetDefault("db.password", "trev_password")
	viper.SetDefault("db.name", "trev_db")

	viper.SetDefault("remote.driver", "sqlite")
	viper.SetDefault("remote.path", "trevpay-remote.db")
	viper.SetDefault("remote.topic", "trev_transactions")
	viper.SetDefault("remote.group", "trev_sync_sink")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})

	viper.SetDefault("wallet.mode", "simulated")
	viper.SetDefault("wallet.rpc_url", "https://polygon-rpc.com")
	viper.SetDefault("wallet.chain_id", 137)
	viper.SetDefault("wallet.keystore_path", "signer.json")
	viper.SetDefault("wallet.gas_limit", 120000)

	viper.SetDefault("price.provider", "coingecko")
	viper.SetDefault("price.url", "https://api.coingecko.com/api/v3/simple/price")
	viper.SetDefault("price.token_id", "matic-network")
	viper.SetDefault("price.vs_currency", "ngn")
	viper.SetDefault("price.cache_ttl", 5*time.Minute)
	viper.SetDefault("price.timeout", 10*time.Second)

	viper.SetDefault("sync.interval", 30*time.Second)
	viper.SetDefault("sync.lock_ttl", 2*time.Minute)

	viper.SetDefault("connectivity.probe", "http")
	viper.SetDefault("connectivity.url", "https://clients3.google.com/generate_204")
	viper.SetDefault("connectivity.interval", 10*time.Second)

	viper.SetDefault("admin.default_password", "admin123")
}
