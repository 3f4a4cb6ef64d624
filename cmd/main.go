package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"

	"detlsh/internal/config"
	"detlsh/internal/dataset"
	"detlsh/internal/index"
	"detlsh/internal/server"
	"detlsh/pkg/logger"

	"github.com/gin-gonic/gin"
)

func loadConfig() (*config.Config, error) {
	path := os.Getenv("DETLSH_CONFIG")
	if path == "" {
		path = "config.yaml"
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.FromFile(path)
}

// preload builds the configured dataset into a fresh index
func preload(ctx context.Context, m *index.Manager, conf *config.Config) error {
	ds := conf.Dataset
	vectors, err := dataset.ReadFile(ds.Path, ds.Limit)
	if err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}
	ids := make([]string, len(vectors))
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	name, err := m.CreateIndex(ctx, ds.IndexName, &index.IndexConfig{
		IndexType: index.IndexType(ds.IndexType),
		Dimension: len(vectors[0]),
	})
	if err != nil {
		return err
	}
	if err := m.BuildIndex(ctx, name, ids, vectors); err != nil {
		return err
	}
	logger.Info("preloaded dataset", "path", ds.Path, "index", name, "vectors", len(vectors))
	return nil
}

func main() {
	// 初始化配置
	conf, err := loadConfig()
	if err != nil {
		panic(err)
	}
	if err := logger.InitLogger(conf.Log.Level, conf.Log.File); err != nil {
		panic(err)
	}
	defer logger.Sync()
	gin.SetMode(conf.Server.Mode)

	manager, err := index.NewManager(conf)
	if err != nil {
		logger.Fatal("failed to create index manager", "error", err)
	}
	defer manager.Close()

	if conf.Dataset.Path != "" {
		if err := preload(context.Background(), manager, conf); err != nil {
			logger.Fatal("failed to preload dataset", "path", conf.Dataset.Path, "error", err)
		}
	}

	// 启动服务器
	logger.Info("starting server", "addr", conf.Server.Addr)
	if err := server.New(manager).Run(conf.Server.Addr); err != nil {
		logger.Fatal("server stopped", "error", err)
	}
}
