// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// StoreFailurePolicy はストア接続がリトライ上限に達したときの振る舞いです。
type StoreFailurePolicy string

const (
	// FailOpen は接続できなくてもリクエストを受け付け続けます（各リクエストが個別に失敗します）。
	FailOpen StoreFailurePolicy = "fail-open"
	// FailFast は接続できなかった場合にプロセスを終了します。
	FailFast StoreFailurePolicy = "fail-fast"
)

// TokenTransport はログイン時にトークンをクライアントへ渡す方式です。
type TokenTransport string

const (
	// TransportCookie は token クッキー（HttpOnly）で返します。
	TransportCookie TokenTransport = "cookie"
	// TransportBearer はレスポンスボディの token フィールドで返します。
	TransportBearer TokenTransport = "bearer"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port     string // APIサーバーのポート番号
	GinMode  string // Ginの実行モード (debug, release, test)
	LogLevel string // logrus のログレベル

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ドキュメントストア設定
	MongoURI           string             // MongoDB 接続文字列
	MongoDatabase      string             // 使用するデータベース名
	DBMaxRetries       int                // 接続試行の最大回数
	DBRetryDelay       time.Duration      // 接続試行の間隔（固定）
	DBConnectTimeout   time.Duration      // 1回の接続試行のタイムアウト
	StoreFailurePolicy StoreFailurePolicy // リトライ上限到達時の方針

	// 認証設定
	JWTSecret      string         // トークン署名用の共有シークレット
	JWTTTL         time.Duration  // トークンの有効期間
	BcryptCost     int            // bcrypt のコスト
	TokenTransport TokenTransport // トークンの受け渡し方式

	// ログイン試行制限
	LoginMaxAttempts  int           // ウィンドウ内で許容する失敗回数（0 で無効）
	LoginWindow       time.Duration // 失敗回数を数える期間
	LoginLockDuration time.Duration // ロック時間
	LimiterRedisURL   string        // 空の場合はメモリ上で管理
}

// Load は環境変数から設定を読み込みます。
// .env.local / .env ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	loadEnvFile()

	config := &Config{
		Port:     getEnv("PORT", "4000"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		MongoURI:           getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase:      getEnv("MONGO_DATABASE", "todo_api"),
		DBMaxRetries:       getEnvAsInt("DB_MAX_RETRIES", 3),
		DBRetryDelay:       getEnvAsMillisDuration("DB_RETRY_DELAY", 5*time.Second),
		DBConnectTimeout:   getEnvAsDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		StoreFailurePolicy: StoreFailurePolicy(getEnv("STORE_FAILURE_POLICY", string(FailOpen))),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTTTL:         getEnvAsDuration("JWT_TTL", time.Hour),
		BcryptCost:     getEnvAsInt("BCRYPT_COST", 12),
		TokenTransport: TokenTransport(getEnv("TOKEN_TRANSPORT", string(TransportCookie))),

		LoginMaxAttempts:  getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:       getEnvAsDuration("LOGIN_WINDOW", 15*time.Minute),
		LoginLockDuration: getEnvAsDuration("LOGIN_LOCK_DURATION", 10*time.Minute),
		LimiterRedisURL:   getEnv("LIMITER_REDIS_URL", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err == nil {
			continue
		}

		cwd, err := os.Getwd()
		if err != nil {
			continue
		}
		parent := filepath.Dir(cwd)
		if parent == "" || parent == cwd {
			continue
		}
		_ = godotenv.Load(filepath.Join(parent, name))
	}
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	switch c.StoreFailurePolicy {
	case FailOpen, FailFast:
	default:
		return fmt.Errorf("STORE_FAILURE_POLICY must be %q or %q, got %q", FailOpen, FailFast, c.StoreFailurePolicy)
	}

	switch c.TokenTransport {
	case TransportCookie, TransportBearer:
	default:
		return fmt.Errorf("TOKEN_TRANSPORT must be %q or %q, got %q", TransportCookie, TransportBearer, c.TokenTransport)
	}

	if c.DBMaxRetries < 1 {
		return fmt.Errorf("DB_MAX_RETRIES must be at least 1, got %d", c.DBMaxRetries)
	}
	// クッキーの MaxAge は秒単位なので 1 秒未満は表現できない
	if c.JWTTTL < time.Second {
		return fmt.Errorf("JWT_TTL must be at least 1s, got %s", c.JWTTTL)
	}

	// 開発環境ではシークレット未設定でも起動できる（トークン発行時に設定エラーとなる）
	if c.GinMode == "release" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in release mode")
		}
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required in release mode")
		}
	}

	return nil
}

// IsRelease は本番モードかどうかを返します。
func (c *Config) IsRelease() bool {
	return c.GinMode == "release"
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsMillisDuration は getEnvAsDuration と同じですが、単位のない数値をミリ秒として扱います（DB_RETRY_DELAY=5000 など）。
func getEnvAsMillisDuration(key string, defaultValue time.Duration) time.Duration {
	if ms, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return getEnvAsDuration(key, defaultValue)
}

// getEnvAsDuration は環境変数を time.Duration として取得します。
// 単位のない数値や不正な値はデフォルト値になります。
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
