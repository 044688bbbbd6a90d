package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/campusbooks/storefront/internal/app"
	"github.com/campusbooks/storefront/internal/config"
	"github.com/campusbooks/storefront/internal/logger"
	"github.com/campusbooks/storefront/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
)

func main() {
	printStartupBanner()

	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	if cfg.Server.Mode == "release" {
		if isTestKey(cfg.Payment.Paystack.PublicKey) {
			stdLog.Printf("警告: Paystack 仍在使用测试公钥，生产环境请更换为正式公钥")
		}
		if strings.HasPrefix(strings.TrimSpace(cfg.Backend.BaseURL), "http://localhost") {
			stdLog.Printf("警告: 后端地址指向 localhost: %s", cfg.Backend.BaseURL)
		}
	}

	// 初始化本地持久化存储
	if err := models.InitDB(cfg.Storage.Driver, cfg.Storage.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Storage.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Storage.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Storage.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Storage.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("本地存储初始化失败: %v", err)
	}

	if err := models.AutoMigrate(nil); err != nil {
		stdLog.Fatalf("本地存储迁移失败: %v", err)
	}

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.Run(app.Options{
		Config:  cfg,
		DB:      models.DB,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func printStartupBanner() {
	fmt.Println(ansiCyan + "╔══════════════════════════════════════════════════╗" + ansiReset)
	fmt.Println(ansiCyan + "║        📚 Campus Bookstore Storefront            ║" + ansiReset)
	fmt.Println(ansiCyan + "╚══════════════════════════════════════════════════╝" + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "cart · checkout · payment verification · order tracking" + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isTestKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.HasPrefix(key, "pk_test_") || strings.HasPrefix(key, "flwpubk_test-")
}
