package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blobarena/config"
	"blobarena/meta"
	"blobarena/server"
	"blobarena/world"
)

// BlobArena 入口：加载配置，启动 HTTP + WebSocket 服务与模拟时钟
func main() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	os.Exit(run(os.Args[1:], quit))
}

// run 返回进程退出码；所有清理都通过 defer 完成，出错时也不会跳过
func run(args []string, quit <-chan os.Signal) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	fs := flag.NewFlagSet("blobarena", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Addr, "server listen address, e.g. :8080")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// 使用第三方 zap 日志库写入日志文件（带滚动）
	log := server.NewLogger(server.LogOptions{File: cfg.LogFile, Level: cfg.LogLevel, Stderr: cfg.LogStderr})
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 房间元数据：配置了路径用 sqlite，否则只在内存中
	var metaStore meta.Store = meta.NewMemStore()
	if cfg.DBPath != "" {
		db, err := meta.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			log.Errorf("open metadata db %s: %v", cfg.DBPath, err)
			return 1
		}
		defer db.Close()
		metaStore = db
	}

	metrics := &server.Metrics{}
	store := world.NewStore(metaStore, log)
	router := server.NewRouter(store, metrics, log, server.QueryIdentity)
	clock := server.NewClock(store, router, metrics, log)
	go clock.Run(ctx)

	api := server.NewAPI(store, router, metrics, log, server.APIConfig{
		AdminToken: cfg.AdminToken,
		ListLimit:  cfg.RoomListLimit,
		Identity:   server.QueryIdentity,
	})

	mux := http.NewServeMux()
	api.Register(mux)
	// 前后端分离：将 / 映射到 web 目录的静态资源
	mux.Handle("/", http.FileServer(http.Dir("web")))

	srv := &http.Server{Addr: *addr, Handler: mux}

	listenErr := make(chan error, 1)
	go func() {
		log.Infof("BlobArena listening on %s; open http://localhost%v/", *addr, *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			listenErr <- err
		}
	}()

	// 优雅退出（Ctrl+C）或监听失败
	code := 0
	select {
	case <-quit:
		log.Info("Shutting down...")
	case err := <-listenErr:
		log.Errorf("listen: %v", err)
		code = 1
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("shutdown: %v", err)
	}
	return code
}
