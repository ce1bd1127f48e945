// Package bootstrap builds every service from configuration. The HTTP
// server and the CLI share it so both run the same wiring.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trevpay/internal/event"
	"trevpay/internal/service/admin"
	"trevpay/internal/service/ledger"
	"trevpay/internal/service/mq"
	"trevpay/internal/service/observer"
	"trevpay/internal/service/payment"
	"trevpay/internal/service/price"
	"trevpay/internal/service/receipt"
	"trevpay/internal/service/remote"
	"trevpay/internal/service/syncer"
	"trevpay/internal/store"
	"trevpay/pkg/cache"
	"trevpay/pkg/config"
	"trevpay/pkg/database"
	"trevpay/pkg/logger"
	"trevpay/pkg/utils/lock"
	"trevpay/pkg/wallet"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const probeTimeout = 5 * time.Second

// App 进程内唯一的一组服务实例
type App struct {
	Config config.Config

	Store        *store.Store
	Redis        *redis.Client // redis.enabled=false 时为 nil
	Connectivity *observer.ConnectivityMonitor
	Notifier     *event.Notifier
	Receipts     *receipt.Service
	Ledger       *ledger.Ledger
	Gateway      *payment.Gateway
	Engine       *syncer.Engine
	Admin        *admin.Service

	closers []func() error
	cancel  context.CancelFunc
}

// New 建立连接并构造服务, 不启动任何后台任务
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() error { return database.Close(db) })
	app.Store = store.New(db)

	if cfg.Redis.Enabled {
		app.Redis, err = database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, app.Redis.Close)
	}

	probe, err := app.newProbe(ctx)
	if err != nil {
		return nil, err
	}
	app.Connectivity = observer.NewConnectivityMonitor(probe, cfg.Connectivity.Interval, probe == nil)

	prices, err := app.newPriceLookup()
	if err != nil {
		return nil, err
	}

	client, err := app.newWallet(ctx)
	if err != nil {
		return nil, err
	}

	endpoint, err := app.newEndpoint(ctx)
	if err != nil {
		return nil, err
	}

	var locker lock.DistributedLock = lock.NewLocalLock()
	if app.Redis != nil {
		locker = lock.NewRedisLock(app.Redis)
	}

	app.Notifier = event.NewNotifier()
	app.Receipts = receipt.NewService(app.Store)
	app.Engine = syncer.NewEngine(endpoint, app.Receipts, app.Connectivity, locker, cfg.Sync.Interval,
		syncer.WithLockTTL(cfg.Sync.LockTTL),
		syncer.WithNotifier(app.Notifier),
	)
	app.Ledger = ledger.New(app.Store, app.Engine, app.Connectivity)
	app.Gateway = payment.NewGateway(client, prices, app.Ledger, app.Receipts, app.Store,
		payment.WithCurrency(cfg.App.Currency),
	)
	app.Engine.UseLedger(app.Ledger)
	app.Engine.UseQueue(app.Gateway)
	app.Admin = admin.NewService(app.Store)

	ok = true
	return app, nil
}

// Start 初始化存储与缓存, 恢复队列, 开始探测网络. 定时同步由 StartScheduler 单独开启
func (a *App) Start(ctx context.Context) error {
	if err := a.Store.Init(ctx); err != nil {
		return err
	}
	if err := a.Receipts.Initialize(ctx); err != nil {
		return err
	}
	if err := a.Gateway.Restore(ctx); err != nil {
		return err
	}
	if err := a.Admin.EnsureDefault(ctx, a.Config.Admin.DefaultPassword); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	a.Connectivity.Refresh(ctx)
	probeCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.Connectivity.Start(probeCtx)

	return a.Ledger.Initialize(ctx)
}

func (a *App) StartScheduler() error {
	return a.Engine.Start()
}

// Close 停止后台任务并按相反顺序关闭连接
func (a *App) Close() {
	if a.Engine != nil {
		a.Engine.Stop()
	}
	if a.Ledger != nil {
		a.Ledger.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		logger.Warn("Error while closing resources", zap.Error(err))
	}
}

func gormLevel(env string) gormlogger.LogLevel {
	if env == "production" {
		return gormlogger.Error
	}
	return gormlogger.Warn
}

func openStore(cfg config.Config) (*gorm.DB, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return database.ConnectPostgres(cfg.DB.DSN(), gormLevel(cfg.App.Env))
	case "sqlite", "":
		return database.ConnectSQLite(cfg.Store.Path, gormLevel(cfg.App.Env))
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// newProbe static 返回 nil: 始终在线, 只能手动切换
func (a *App) newProbe(ctx context.Context) (observer.Probe, error) {
	switch a.Config.Connectivity.Probe {
	case "http":
		return observer.NewHTTPProbe(a.Config.Connectivity.URL, probeTimeout), nil
	case "chain":
		client, err := ethclient.DialContext(ctx, a.Config.Wallet.RpcUrl)
		if err != nil {
			return nil, fmt.Errorf("dial rpc for connectivity probe: %w", err)
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })
		return observer.NewChainProbe(client, probeTimeout), nil
	case "static", "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown connectivity probe %q", a.Config.Connectivity.Probe)
}

func (a *App) newPriceLookup() (price.Lookup, error) {
	pc := a.Config.Price
	var upstream price.Lookup
	switch pc.Provider {
	case "fixed":
		fixed, err := price.NewFixed(pc.Fixed)
		if err != nil {
			return nil, fmt.Errorf("price.fixed: %w", err)
		}
		return fixed, nil
	case "coingecko", "":
		upstream = price.NewCoinGecko(pc.URL, pc.TokenID, pc.VsCurrency, pc.Timeout)
	default:
		return nil, fmt.Errorf("unknown price provider %q", pc.Provider)
	}

	var c cache.Cache = cache.NewMemoryCache(pc.CacheTTL, 2*pc.CacheTTL)
	if a.Redis != nil {
		c = cache.NewMultiLevelCache(c, cache.NewRedisCache(a.Redis, "trevpay"))
	}
	key := fmt.Sprintf("price:%s:%s", pc.TokenID, pc.VsCurrency)
	return price.NewCached(upstream, c, key, pc.CacheTTL), nil
}

func (a *App) newWallet(ctx context.Context) (wallet.Client, error) {
	wc := a.Config.Wallet
	switch wc.Mode {
	case "rpc":
		key, err := wallet.LoadSigner(wc.KeystorePath, wc.Password)
		if err != nil {
			return nil, fmt.Errorf("load signer: %w", err)
		}
		client, err := wallet.NewEthClient(ctx, wc.RpcUrl, key, wc.GasLimit)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { client.Close(); return nil })
		return client, nil
	case "simulated", "":
		key, err := wallet.LoadOrEphemeralSigner(wc.KeystorePath, wc.Password)
		if err != nil {
			return nil, fmt.Errorf("load signer: %w", err)
		}
		return wallet.NewSimulatedClient(key, wc.ChainID, nil), nil
	case "none":
		// 只入队, 不上链
		return nil, nil
	}
	return nil, fmt.Errorf("unknown wallet mode %q", wc.Mode)
}

func (a *App) newEndpoint(ctx context.Context) (remote.Endpoint, error) {
	rc := a.Config.Remote
	switch rc.Driver {
	case "sqlite", "":
		db, err := database.ConnectSQLite(rc.Path, gormLevel(a.Config.App.Env))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return database.Close(db) })
		ep := remote.NewGormEndpoint(db)
		return ep, ep.Migrate(ctx)
	case "postgres":
		db, err := database.ConnectPostgres(a.Config.DB.DSN(), gormLevel(a.Config.App.Env))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return database.Close(db) })
		// 表结构由 cmd/migrate 维护
		return remote.NewGormEndpoint(db), nil
	case "kafka":
		producer := mq.NewKafkaProducer(a.Config.Kafka.Brokers, rc.Topic)
		a.closers = append(a.closers, producer.Close)
		return remote.NewStreamEndpoint(producer, rc.Topic), nil
	case "redis":
		if a.Redis == nil {
			return nil, errors.New("remote.driver=redis requires redis.enabled")
		}
		return remote.NewStreamEndpoint(mq.NewRedisProducer(a.Redis), rc.Topic), nil
	}
	return nil, fmt.Errorf("unknown remote driver %q", rc.Driver)
}
