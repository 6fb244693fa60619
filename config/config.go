package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config 进程级配置：先读取可选的 .env，再读环境变量
type Config struct {
	Addr          string
	LogFile       string
	LogLevel      string
	LogStderr     bool
	DBPath        string // 为空时元数据只保存在内存
	AdminToken    string // 为空时关闭管理接口
	RoomListLimit int
}

// Load 读取配置；files 为空时尝试当前目录下的 .env
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	limit, err := intEnv("ARENA_ROOM_LIST_LIMIT", 20)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Addr:          stringEnv("ARENA_ADDR", ":8080"),
		LogFile:       stringEnv("ARENA_LOG_FILE", "app.log"),
		LogLevel:      stringEnv("ARENA_LOG_LEVEL", "info"),
		LogStderr:     boolEnv("ARENA_LOG_STDERR"),
		DBPath:        stringEnv("ARENA_DB_PATH", "data.db"),
		AdminToken:    os.Getenv("ARENA_ADMIN_TOKEN"),
		RoomListLimit: limit,
	}, nil
}

func stringEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func boolEnv(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func intEnv(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
