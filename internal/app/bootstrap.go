package app

import (
	"context"
	"errors"

	"github.com/campusbooks/storefront/internal/config"
	"github.com/campusbooks/storefront/internal/provider"
	"github.com/campusbooks/storefront/internal/router"
	"github.com/campusbooks/storefront/internal/telemetry"

	"gorm.io/gorm"
)

// BuildRunner 构建服务运行器：本地视图 HTTP 服务与其依赖的生命周期
func BuildRunner(ctx context.Context, cfg *config.Config, db *gorm.DB) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}

	container, err := provider.NewContainer(ctx, cfg, db)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, err
	}

	engine := router.SetupRouter(cfg, container)
	addr := cfg.Server.Host + ":" + cfg.Server.Port

	return NewRunner(
		NewLifecycleService("telemetry", shutdownTracing),
		NewLifecycleService("container", func(context.Context) error { return container.Close() }),
		NewHTTPService(addr, engine),
	), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(context.Background(), opts.Config, opts.DB)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "backend", opts.Config.Backend.BaseURL)
	return RunWithOptions(runner, opts)
}
