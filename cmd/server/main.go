package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"zrange/pkg/api"
	"zrange/pkg/config"
)

// main 是 zrange 服务器的入口。
func main() {
	configPath := flag.String("config", "", "path to a yaml config (default: configs/zrange.yaml, zrange.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	tree, err := cfg.BuildTree(logger)
	if err != nil {
		logger.Fatal("build tree", zap.Error(err))
	}

	srv := api.NewServer(tree, cfg.QueryOptions(), logger)
	if err := srv.Start(cfg.Server.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
