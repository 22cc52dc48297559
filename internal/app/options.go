package app

import (
	"os"
	"time"

	"github.com/dujiao-next/marketing/internal/config"
	"github.com/dujiao-next/marketing/internal/logger"

	"go.uber.org/zap"
)

// 运行模式：all 同时启动接口与后台任务；worker 包含队列消费、定时聚合与 Kafka 接入
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
