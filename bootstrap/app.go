package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"backend/api"
	"backend/config"
	"backend/storage"
	"backend/util/goroutine"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("application already started")
	// ErrNotStarted is returned by Wait before the server is listening.
	ErrNotStarted = errors.New("application not started")
)

// App represents the server with all its components.
type App struct {
	// Configuration
	Config *config.Config
	Logger *zap.Logger
	Sugar  *zap.SugaredLogger

	// Components, created by the startup steps
	DB  *storage.Connector
	API *api.API

	envFile    string
	listenAddr string
	dialer     storage.DialFunc
	level      zap.AtomicLevel
	ownLogger  bool

	mu        sync.Mutex
	started   bool
	boundAddr net.Addr
	serveDone chan struct{}
	serveErr  error
}

// Option configures an App.
type Option func(*App)

// WithConfig injects a configuration; the config step then skips loading.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) { a.Config = cfg }
}

// WithLogger injects a logger instead of the console logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) { a.Logger = logger }
}

// WithDialer replaces the MongoDB dialer.
func WithDialer(dial storage.DialFunc) Option {
	return func(a *App) { a.dialer = dial }
}

// WithEnvFile sets the dotenv file read by the config step.
func WithEnvFile(path string) Option {
	return func(a *App) { a.envFile = path }
}

// WithListenAddr overrides the address derived from the configured port,
// e.g. "127.0.0.1:0" to bind an ephemeral port.
func WithListenAddr(addr string) Option {
	return func(a *App) { a.listenAddr = addr }
}

// NewApp creates a new application instance. Components are created by
// Start, not here.
func NewApp(ctx context.Context, opts ...Option) (*App, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	app := &App{
		envFile: config.DefaultEnvFile,
		level:   zap.NewAtomicLevelAt(zapcore.InfoLevel),
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.Logger == nil {
		logger, _, err := InitLogger(app.level)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		app.Logger = logger
		app.ownLogger = true
	}
	app.Sugar = app.Logger.Sugar()

	app.Sugar.Info("Backend starting...")
	return app, nil
}

// Steps returns the startup sequence in execution order.
func (a *App) Steps() []Step {
	return []Step{
		{Name: "config", Run: a.loadConfiguration},
		{Name: "application", Run: a.buildApplication},
		{Name: "database", Run: a.connectDatabase},
		{Name: "routes", Run: a.registerRoutes},
		{Name: "listen", Run: a.listen},
	}
}

// Start runs the startup sequence. When it returns nil the socket is bound
// and requests are being served; the database may still be connecting.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true
	a.mu.Unlock()

	if _, err := NewPipeline(a.Sugar, a.Steps()...).Run(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}
	return nil
}

func (a *App) loadConfiguration(ctx context.Context) error {
	if a.Config == nil {
		cfg, err := InitConfig(a.envFile, a.Sugar)
		if err != nil {
			return err
		}
		a.Config = cfg
	}

	if a.ownLogger {
		level, err := zapcore.ParseLevel(a.Config.Log.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", a.Config.Log.Level, err)
		}
		a.level.SetLevel(level)
	}
	return nil
}

func (a *App) buildApplication(ctx context.Context) error {
	a.DB = storage.NewConnector(a.Config.MongoURI, a.Config.Mongo.ConnectTimeout, a.Sugar)
	if a.dialer != nil {
		a.DB.SetDialer(a.dialer)
	}
	a.API = api.NewAPI(a.Config, a.DB, a.Sugar)
	return nil
}

// connectDatabase starts the connection attempt and returns immediately.
// The attempt is not tied to ctx; it is bounded by the connect timeout.
func (a *App) connectDatabase(ctx context.Context) error {
	a.DB.ConnectAsync(context.WithoutCancel(ctx))
	return nil
}

func (a *App) registerRoutes(ctx context.Context) error {
	a.API.RegisterRoutes()
	return nil
}

func (a *App) listen(ctx context.Context) error {
	addr := a.listenAddr
	if addr == "" {
		addr = a.Config.Addr()
	}

	bound, err := a.API.Listen(addr)
	if err != nil {
		return err
	}

	port := a.Config.Port
	if tcpAddr, ok := bound.(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	done := make(chan struct{})
	a.mu.Lock()
	a.boundAddr = bound
	a.serveDone = done
	a.mu.Unlock()

	a.Sugar.Infof("Server running on port %d", port)

	goroutine.Go("http-server", a.Sugar, func() {
		defer close(done)
		if err := a.API.Serve(); err != nil {
			a.Sugar.Errorw("HTTP server stopped", "error", err)
			a.mu.Lock()
			a.serveErr = err
			a.mu.Unlock()
		}
	})
	return nil
}

// BoundAddr returns the address of the listening socket, or nil before the
// listen step has run.
func (a *App) BoundAddr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.boundAddr
}

// Wait blocks until the HTTP server stops and returns its error. A server
// stopped by Close is not an error.
func (a *App) Wait() error {
	a.mu.Lock()
	done := a.serveDone
	a.mu.Unlock()

	if done == nil {
		return ErrNotStarted
	}
	<-done

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.serveErr
}

// Close stops the HTTP server and disconnects the database.
func (a *App) Close(ctx context.Context) error {
	a.Sugar.Info("Shutting down...")

	var errs []error
	if a.API != nil {
		if err := a.API.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop API server: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	a.Sugar.Info("Shutdown complete")
	_ = a.Logger.Sync()

	return errors.Join(errs...)
}
