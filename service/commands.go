// Package service implements the inkpost command line: the HTTP server and
// the database maintenance commands.
package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"inkpost/app/config"
	"inkpost/app/repositories"
	"inkpost/app/services"

	"go.uber.org/zap"
)

// Version is reported by the version command.
const Version = "1.0.0"

var (
	stdout io.Writer = consoleOut{}
	stdin  io.Reader = os.Stdin

	openStore = func(cfg *config.Config, log *zap.Logger) (*repositories.Store, error) {
		return repositories.Open(cfg.Database.ToStoreOptions(), log)
	}
	now = time.Now
)

// consoleOut writes to whatever os.Stdout is at call time.
type consoleOut struct{}

func (consoleOut) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

// NeedsConfig reports whether cmd reads the configuration. help and
// version work without one.
func NeedsConfig(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "help", "version", "-h", "--help":
		return false
	}
	return true
}

// HandleCommand runs one command and returns the process exit code.
func HandleCommand(cfg *config.Config, log *zap.Logger, args []string) int {
	if len(args) < 1 {
		printHelp()
		return 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	if NeedsConfig(args) && cfg == nil {
		fmt.Fprintln(stdout, "Error: configuration is required for this command")
		return 1
	}

	cmd := args[0]
	switch cmd {
	case "serve":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := RunAppServer(ctx, cfg, log); err != nil {
			fmt.Fprintf(stdout, "Server error: %v\n", err)
			return 1
		}
		return 0
	case "db":
		return handleDB(cfg, log, args[1:])
	case "createadmin":
		if len(args) != 3 {
			fmt.Fprintln(stdout, "Error: usage: inkpost createadmin <username> <password>")
			return 1
		}
		return createAdmin(cfg, log, args[1], args[2])
	case "version":
		fmt.Fprintf(stdout, "inkpost version %s\n", Version)
		return 0
	case "help", "-h", "--help":
		printHelp()
		return 0
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n\n", cmd)
		printHelp()
		return 1
	}
}

func handleDB(cfg *config.Config, log *zap.Logger, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(stdout, "Error: db needs a subcommand (init, clean, backup, restore)")
		return 1
	}
	switch args[0] {
	case "init":
		return initDb(cfg, log)
	case "clean":
		return clean(cfg, log)
	case "backup":
		file := ""
		if len(args) > 1 {
			file = args[1]
		}
		return backup(cfg, log, file)
	case "restore":
		if len(args) < 2 {
			fmt.Fprintln(stdout, "Error: backup file path required for restore")
			return 1
		}
		return restore(cfg, log, args[1])
	default:
		fmt.Fprintf(stdout, "Unknown db command: %s\n\n", args[0])
		printHelp()
		return 1
	}
}

func printHelp() {
	helpText := `Usage: inkpost [--config <file>] <command>

Commands:
  serve                              Run the blog web server
  db init                            Create the database and schema
  db clean                           Delete every post, comment and user
  db backup [file]                   Write a Badger backup (default data/backups/backup_<unix>.db)
  db restore <file>                  Load a Badger backup
  createadmin <username> <password>  Create a staff account
  version                            Show version information
  help                               Display this help message
`
	fmt.Fprintln(stdout, helpText)
}

// confirm asks a yes/no question on stdin. Anything but y or yes is no.
func confirm(question string) bool {
	fmt.Fprintf(stdout, "%s [y/N] ", question)
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func badgerPathMissing(cfg *config.Config) bool {
	if !strings.EqualFold(cfg.Database.Driver, repositories.DriverBadger) || cfg.Database.InMemory {
		return false
	}
	_, err := os.Stat(cfg.Database.Path)
	return os.IsNotExist(err)
}

// initDb opens the store, which creates the Badger directory or migrates
// the SQL schema.
func initDb(cfg *config.Config, log *zap.Logger) int {
	store, err := openStore(cfg, log)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to initialize database: %v\n", err)
		return 1
	}
	defer store.Close()
	fmt.Fprintf(stdout, "Database initialized successfully (%s)\n", store.Driver())
	return 0
}

// clean removes every record after confirmation.
func clean(cfg *config.Config, log *zap.Logger) int {
	if badgerPathMissing(cfg) {
		fmt.Fprintln(stdout, "Database is already clean (does not exist)")
		return 0
	}
	if !confirm("Are you sure you want to clean the database? This cannot be undone.") {
		fmt.Fprintln(stdout, "Operation cancelled")
		return 1
	}

	store, err := openStore(cfg, log)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		fmt.Fprintf(stdout, "Failed to clean database: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "Database cleaned successfully")
	return 0
}

// backup streams a full backup to file, or to a timestamped file next to
// the data directory.
func backup(cfg *config.Config, log *zap.Logger, file string) int {
	if badgerPathMissing(cfg) {
		fmt.Fprintln(stdout, "No database exists to backup")
		return 1
	}

	store, err := openStore(cfg, log)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	if store.Driver() != repositories.DriverBadger {
		fmt.Fprintf(stdout, "Backup is only available for the badger driver (current: %s). Use your database's own tools.\n", store.Driver())
		return 1
	}

	if file == "" {
		backupDir := filepath.Join(filepath.Dir(filepath.Clean(cfg.Database.Path)), "backups")
		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			fmt.Fprintf(stdout, "Failed to create backup directory: %v\n", err)
			return 1
		}
		file = filepath.Join(backupDir, fmt.Sprintf("backup_%d.db", now().Unix()))
	}

	f, err := os.Create(file)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to create backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if err := store.Backup(f); err != nil {
		fmt.Fprintf(stdout, "Failed to backup database: %v\n", err)
		return 1
	}
	log.Info("database backed up", zap.String("file", file))
	fmt.Fprintf(stdout, "Database backed up successfully to %s\n", file)
	return 0
}

// restore loads a backup into the configured database. Existing keys are
// overwritten, so the user is asked first.
func restore(cfg *config.Config, log *zap.Logger, backupFile string) int {
	fi, err := os.Stat(backupFile)
	if os.IsNotExist(err) {
		fmt.Fprintf(stdout, "Backup file does not exist: %s\n", backupFile)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stdout, "Failed to stat backup file: %v\n", err)
		return 1
	}
	if fi.Size() == 0 {
		fmt.Fprintf(stdout, "Backup file is empty: %s\n", backupFile)
		return 1
	}

	if !badgerPathMissing(cfg) && !confirm("Existing records with the same keys will be replaced. Continue?") {
		fmt.Fprintln(stdout, "Operation cancelled")
		return 1
	}

	store, err := openStore(cfg, log)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to open backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if err := store.Restore(f); err != nil {
		if errors.Is(err, repositories.ErrUnsupported) {
			fmt.Fprintf(stdout, "Restore is only available for the badger driver (current: %s).\n", store.Driver())
			return 1
		}
		fmt.Fprintf(stdout, "Failed to restore database: %v\n", err)
		return 1
	}
	log.Info("database restored", zap.String("file", backupFile))
	fmt.Fprintln(stdout, "Database restored successfully")
	return 0
}

func createAdmin(cfg *config.Config, log *zap.Logger, username, password string) int {
	store, err := openStore(cfg, log)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to open database: %v\n", err)
		return 1
	}
	defer store.Close()

	accounts := services.NewAccountService(store.Users, store.Posts, cfg.Session.ToServiceConfig())
	user, err := accounts.CreateAdmin(username, password)
	if err != nil {
		if ve, ok := services.AsValidationError(err); ok {
			for field, message := range ve.Fields {
				fmt.Fprintf(stdout, "%s: %s\n", field, message)
			}
			return 1
		}
		fmt.Fprintf(stdout, "Failed to create staff user: %v\n", err)
		return 1
	}
	log.Info("staff user created", zap.String("username", user.Username))
	fmt.Fprintf(stdout, "Staff user %q created\n", user.Username)
	return 0
}
