// Package store はドキュメントストア（MongoDB）への接続確立と状態管理を提供します。
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/internal/metrics"
)

// State は接続マネージャーの状態です。
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateRetrying   State = "retrying"
	StateConnected  State = "connected"
	StateExhausted  State = "exhausted"
)

// Terminal は再遷移しない状態かどうかを返します。
func (s State) Terminal() bool {
	return s == StateConnected || s == StateExhausted
}

// ErrStoreUnavailable は接続が確立していない状態でストアを使おうとしたときに返されます。
var ErrStoreUnavailable = errors.New("document store unavailable")

// Dialer は接続を1回試行します。成功時は疎通確認済みのクライアントを返します。
type Dialer func(ctx context.Context, uri string) (*mongo.Client, error)

// Options は接続マネージャーの設定です。
type Options struct {
	URI            string
	Database       string
	MaxRetries     int
	RetryDelay     time.Duration
	ConnectTimeout time.Duration
}

// OptionsFromConfig はアプリケーション設定から Options を組み立てます。
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		MaxRetries:     cfg.DBMaxRetries,
		RetryDelay:     cfg.DBRetryDelay,
		ConnectTimeout: cfg.DBConnectTimeout,
	}
}

// Manager は起動時に一度だけ接続を確立します。
// 固定間隔で最大 MaxRetries 回まで試行し、connected か exhausted で止まります。
// 終端状態に達した後の再接続は行いません。
type Manager struct {
	opts    Options
	dial    Dialer
	logger  logrus.FieldLogger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	state    State
	attempts int
	client   *mongo.Client
	lastErr  error

	startOnce sync.Once
	done      chan struct{}
}

// NewManager は Manager を作成します。dial が nil の場合は DialMongo を使います。
func NewManager(opts Options, dial Dialer, logger logrus.FieldLogger, m *metrics.Metrics) *Manager {
	if dial == nil {
		dial = DialMongo
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	return &Manager{
		opts:    opts,
		dial:    dial,
		logger:  logger.WithField("component", "store"),
		metrics: m,
		state:   StateIdle,
		done:    make(chan struct{}),
	}
}

// Start は接続シーケンスをバックグラウンドで開始します。
// 呼び出し元はブロックされず、2回目以降の呼び出しは何もしません。
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		m.setState(StateConnecting)
		go m.run(ctx)
	})
}

// Connect は接続シーケンスを実行し、終端状態になるまで待ちます。
func (m *Manager) Connect(ctx context.Context) (State, error) {
	m.Start(ctx)
	return m.Wait(ctx)
}

// Wait は終端状態になるか ctx が終了するまで待ちます。
// exhausted の場合は最後の接続エラーを ErrStoreUnavailable で包んで返します。
func (m *Manager) Wait(ctx context.Context) (State, error) {
	select {
	case <-m.done:
	case <-ctx.Done():
		return m.State(), ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == StateExhausted {
		return m.state, oops.In("store").
			Code("STORE_CONNECT_EXHAUSTED").
			With("attempts", m.attempts).
			Wrapf(errors.Join(ErrStoreUnavailable, m.lastErr), "could not connect to document store")
	}
	return m.state, nil
}

// Done は終端状態に達したときに閉じられるチャネルを返します。
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// State は現在の状態を返します。
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Attempts はこれまでの接続試行回数を返します。
func (m *Manager) Attempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts
}

// Database は接続済みの場合にデータベースハンドルを返します。
func (m *Manager) Database() (*mongo.Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateConnected || m.client == nil {
		return nil, oops.In("store").
			Code("STORE_UNAVAILABLE").
			With("state", string(m.state)).
			Wrap(ErrStoreUnavailable)
	}
	return m.client.Database(m.opts.Database), nil
}

// Close は接続済みのクライアントを切断します。
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	// WithMaxRetries は「再試行」の回数なので、初回分を引く
	backoff := retry.WithMaxRetries(uint64(m.opts.MaxRetries-1), retry.NewConstant(m.opts.RetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt := m.beginAttempt()

		client, err := m.dialOnce(ctx)
		if err == nil {
			m.markConnected(client)
			m.metrics.StoreAttempt(true)
			m.logger.WithField("attempt", attempt).Info("document store connected")
			return nil
		}

		m.metrics.StoreAttempt(false)
		m.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Errorf("document store connection failed on attempt %d", attempt)

		if attempt < m.opts.MaxRetries {
			m.setState(StateRetrying)
			m.logger.Infof("retrying connection in %s, attempt %d of %d", m.opts.RetryDelay, attempt+1, m.opts.MaxRetries)
		}
		return retry.RetryableError(err)
	})

	if err != nil {
		m.markExhausted(err)
		m.logger.WithField("attempts", m.Attempts()).Error("could not connect to document store after multiple attempts")
	}
}

func (m *Manager) dialOnce(ctx context.Context) (*mongo.Client, error) {
	if m.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.ConnectTimeout)
		defer cancel()
	}
	return m.dial(ctx, m.opts.URI)
}

func (m *Manager) beginAttempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	m.state = StateConnecting
	return m.attempts
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Manager) markConnected(client *mongo.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateConnected
	m.client = client
	m.lastErr = nil
}

func (m *Manager) markExhausted(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateExhausted
	m.lastErr = err
}
