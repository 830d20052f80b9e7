// Package server composes the user service: it opens the credential store,
// builds the services and runs the HTTP and gRPC transports until the
// process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/config"
	"github.com/dmitrijs2005/usersvc/internal/server/mailer"
	"github.com/dmitrijs2005/usersvc/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/usersvc/internal/server/rest"
	"github.com/dmitrijs2005/usersvc/internal/server/services"

	gs "github.com/dmitrijs2005/usersvc/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	authService *services.AuthService
}

// Store is an open, migrated credential store.
type Store struct {
	DB      *sql.DB
	Manager repomanager.RepositoryManager
}

// OpenStore connects to the configured database and applies migrations.
func OpenStore(ctx context.Context, c *config.Config) (*Store, error) {
	db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	return &Store{DB: db, Manager: m}, nil
}

// NewUserService wires a UserService with production settings. The admin
// CLI uses it too.
func NewUserService(s *Store, c *config.Config, logger logging.Logger) *services.UserService {
	ml := mailer.New(mailer.Config{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
		Security: c.SMTPSecurity,
	}, logger)

	return services.NewUserService(s.DB, s.Manager, auth.NewBcryptHasher(auth.DefaultCost), ml, c, logger)
}

func NewApp(ctx context.Context, c *config.Config, out io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(c.LogBackend, out)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, c)
	if err != nil {
		return nil, err
	}

	hasher := auth.NewBcryptHasher(auth.DefaultCost)
	tokens := auth.NewTokenService([]byte(c.SecretKey))

	us := NewUserService(store, c, logger)
	as := services.NewAuthService(store.DB, store.Manager, hasher, tokens, c, logger)

	return &App{config: c, logger: logger, db: store.DB, userService: us, authService: as}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.userService, app.authService)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := rest.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.userService, app.authService, app.db)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves both transports until a signal arrives or ctx is cancelled.
// A failing transport stops the other one as well.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")

	if s, ok := app.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}
