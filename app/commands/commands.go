package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"bluelog/app/bootstrap"
	"bluelog/app/config"
	"bluelog/app/logger"
	"bluelog/app/repositories"
	"bluelog/app/services"

	"github.com/sirupsen/logrus"
)

var (
	// EnvFile is the dotenv file read before the environment.
	EnvFile = ".env"

	// stdin and stdout replace the process streams when set.
	stdin  io.Reader
	stdout io.Writer

	// shutdown delivers the signal that stops serve.
	shutdown = func(ctx context.Context) (context.Context, context.CancelFunc) {
		return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	}
)

// HandleCommand runs one blog subcommand and returns its exit code.
func HandleCommand(args []string) int {
	if len(args) < 1 {
		PrintHelp()
		return 1
	}

	var code int
	switch args[0] {
	case "serve":
		code = serve()
	case "init":
		code = initBlog(args[1:])
	case "forge":
		code = forge(args[1:])
	case "backup":
		code = backup(args[1:])
	case "restore":
		if len(args) < 2 {
			fmt.Fprintln(output(), "Error: backup file path required for restore")
			return 1
		}
		code = restore(args[1])
	case "clean":
		code = clean()
	case "help":
		PrintHelp()
	default:
		fmt.Fprintf(output(), "Unknown command: %s\n\n", args[0])
		PrintHelp()
		return 1
	}
	return code
}

// PrintHelp prints the subcommands.
func PrintHelp() {
	fmt.Fprintln(output(), `Usage: bluelog <command> [options]

Commands:
  serve                                    Run the blog
  init [--username u] [--password p]       Create or reset the admin account
  forge [--category n] [--post n] [--comment n]
                                           Fill the blog with fake content
  backup [--output dir]                    Write a backup of the database
  restore <file>                           Restore the database from a backup
  clean                                    Remove the database
  help                                     Display this help message
  version                                  Show version information

Configuration is read from .env and the environment.`)
}

func output() io.Writer {
	if stdout != nil {
		return stdout
	}
	return os.Stdout
}

func input() io.Reader {
	if stdin != nil {
		return stdin
	}
	return os.Stdin
}

func loadConfig() (*config.Config, logrus.FieldLogger, error) {
	cfg, err := config.Load(EnvFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}

func confirm(question string) bool {
	fmt.Fprintf(output(), "%s [y/N] ", question)
	response, _ := bufio.NewReader(input()).ReadString('\n')
	response = strings.TrimSpace(response)
	return response == "y" || response == "Y"
}

func serve() int {
	cfg, log, err := loadConfig()
	if err != nil {
		fmt.Fprintf(output(), "Failed to load configuration: %v\n", err)
		return 1
	}

	app, err := bootstrap.New(cfg, log)
	if err != nil {
		log.WithError(err).Error("failed to start")
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.WithError(err).Error("failed to close")
		}
	}()

	ctx, stop := shutdown(context.Background())
	defer stop()
	return runServer(ctx, app.Server(), cfg.HTTP.ShutdownTimeout, log)
}

// runServer serves until ctx is done and then shuts srv down gracefully.
func runServer(ctx context.Context, srv *http.Server, timeout time.Duration, log logrus.FieldLogger) int {
	errs := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("starting blog")
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server error")
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
		return 1
	}
	return 0
}

func initBlog(args []string) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(output())
	username := fs.String("username", "", "admin username")
	password := fs.String("password", "", "admin password")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *username == "" || *password == "" {
		fmt.Fprintln(output(), "Error: --username and --password are required")
		return 1
	}

	return withStore(func(cfg *config.Config, log logrus.FieldLogger, store repositories.Store) int {
		fmt.Fprintln(output(), "Initializing the database...")
		authService := services.NewAuthService(store, cfg.Blog.AdminEmail, log)
		if _, err := authService.Init(context.Background(), *username, *password); err != nil {
			fmt.Fprintf(output(), "Failed to initialize: %v\n", err)
			return 1
		}
		fmt.Fprintln(output(), "Done.")
		return 0
	})
}

func forge(args []string) int {
	fs := flag.NewFlagSet("forge", flag.ContinueOnError)
	fs.SetOutput(output())
	opts := services.ForgeOptions{Seed: time.Now().UnixNano()}
	fs.IntVar(&opts.Categories, "category", 10, "number of categories")
	fs.IntVar(&opts.Posts, "post", 50, "number of posts")
	fs.IntVar(&opts.Comments, "comment", 500, "number of comments")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	return withStore(func(cfg *config.Config, log logrus.FieldLogger, store repositories.Store) int {
		fmt.Fprintf(output(), "Generating %d categories, %d posts and %d comments...\n", opts.Categories, opts.Posts, opts.Comments)
		if err := services.Forge(context.Background(), store, opts); err != nil {
			fmt.Fprintf(output(), "Failed to forge: %v\n", err)
			return 1
		}
		fmt.Fprintln(output(), "Done.")
		return 0
	})
}

func withStore(f func(*config.Config, logrus.FieldLogger, repositories.Store) int) int {
	cfg, log, err := loadConfig()
	if err != nil {
		fmt.Fprintf(output(), "Failed to load configuration: %v\n", err)
		return 1
	}
	store, err := bootstrap.OpenStore(cfg.Store)
	if err != nil {
		fmt.Fprintf(output(), "Failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()
	return f(cfg, log, store)
}

// badgerStore opens the configured store for the commands that only the
// badger driver supports.
func badgerStore(cfg *config.Config) (*repositories.Repository, error) {
	if cfg.Store.Driver != "badger" {
		return nil, fmt.Errorf("backup and restore need the badger driver, got %q", cfg.Store.Driver)
	}
	return repositories.NewRepository(cfg.Store.Path)
}

func backup(args []string) int {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	fs.SetOutput(output())
	dir := fs.String("output", "data/backups", "backup directory")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, _, err := loadConfig()
	if err != nil {
		fmt.Fprintf(output(), "Failed to load configuration: %v\n", err)
		return 1
	}
	if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
		fmt.Fprintln(output(), "No database exists to backup")
		return 1
	}
	if err := os.MkdirAll(*dir, 0755); err != nil {
		fmt.Fprintf(output(), "Failed to create backup directory: %v\n", err)
		return 1
	}

	repo, err := badgerStore(cfg)
	if err != nil {
		fmt.Fprintf(output(), "Failed to open database: %v\n", err)
		return 1
	}
	defer repo.Close()

	backupFile := filepath.Join(*dir, fmt.Sprintf("backup_%d.db", time.Now().Unix()))
	f, err := os.Create(backupFile)
	if err != nil {
		fmt.Fprintf(output(), "Failed to create backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if err := repo.Backup(f); err != nil {
		fmt.Fprintf(output(), "Failed to backup database: %v\n", err)
		return 1
	}
	fmt.Fprintf(output(), "Database backed up successfully to %s\n", backupFile)
	return 0
}

func restore(backupFile string) int {
	fi, err := os.Stat(backupFile)
	if os.IsNotExist(err) {
		fmt.Fprintf(output(), "Backup file does not exist: %s\n", backupFile)
		return 1
	}
	if err == nil && fi.Size() == 0 {
		fmt.Fprintf(output(), "Backup file is empty: %s\n", backupFile)
		return 1
	}

	cfg, _, err := loadConfig()
	if err != nil {
		fmt.Fprintf(output(), "Failed to load configuration: %v\n", err)
		return 1
	}
	if _, err := os.Stat(cfg.Store.Path); err == nil {
		if !confirm("Existing database found. Do you want to replace it?") {
			fmt.Fprintln(output(), "Operation cancelled")
			return 1
		}
		if err := os.RemoveAll(cfg.Store.Path); err != nil {
			fmt.Fprintf(output(), "Failed to remove existing database: %v\n", err)
			return 1
		}
	}

	repo, err := badgerStore(cfg)
	if err != nil {
		fmt.Fprintf(output(), "Failed to open database: %v\n", err)
		return 1
	}
	defer repo.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		fmt.Fprintf(output(), "Failed to open backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if err := repo.Load(f); err != nil {
		fmt.Fprintf(output(), "Failed to restore database: %v\n", err)
		return 1
	}
	fmt.Fprintln(output(), "Database restored successfully")
	return 0
}

func clean() int {
	cfg, _, err := loadConfig()
	if err != nil {
		fmt.Fprintf(output(), "Failed to load configuration: %v\n", err)
		return 1
	}
	if _, err := os.Stat(cfg.Store.Path); os.IsNotExist(err) {
		fmt.Fprintln(output(), "Database is already clean (does not exist)")
		return 0
	}

	if !confirm("Are you sure you want to clean the database? This cannot be undone.") {
		fmt.Fprintln(output(), "Operation cancelled")
		return 0
	}
	if err := os.RemoveAll(cfg.Store.Path); err != nil {
		fmt.Fprintf(output(), "Failed to clean database: %v\n", err)
		return 1
	}
	fmt.Fprintln(output(), "Database cleaned successfully")
	return 0
}
