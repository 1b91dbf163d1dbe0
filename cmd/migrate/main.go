package main

import (
	"encoding/json"
	"flag"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joripage/matching-engine/config"
	"github.com/joripage/matching-engine/pkg/infra"
	"go.uber.org/zap"
)

func main() {
	var (
		configFile string
		source     string
		down       bool
	)
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.StringVar(&source, "source", "file://migration/sql", "migration source url")
	flag.BoolVar(&down, "down", false, "roll every migration back")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	zap.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}
	if cfg.OmsDB == nil {
		zap.S().Fatal("oms_db section missing")
	}

	configBytes, err := json.MarshalIndent(cfg.OmsDB, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	mgTool := infra.GetMigrateTool()
	if down {
		err = mgTool.Down(source, cfg.OmsDB.MigrationConnURL)
	} else {
		err = mgTool.Migrate(source, cfg.OmsDB.MigrationConnURL)
	}
	if err != nil {
		zap.S().Fatalf("migration failed: %v", err)
	}
	zap.S().Info("migration done")
}
