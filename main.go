package main

import (
	"fmt"
	"os"
	"strings"

	"inkpost/app/config"
	"inkpost/app/logger"
	"inkpost/service"

	"go.uber.org/zap"
)

var exit = os.Exit

func main() {
	RealMain()
}

// RealMain runs the command line and exits with its status.
func RealMain() {
	exit(run(os.Args[1:]))
}

func run(args []string) int {
	path, rest, err := splitConfigFlag(args)
	if err != nil {
		fmt.Println("Error:", err)
		return 1
	}

	var cfg *config.Config
	var log *zap.Logger
	if service.NeedsConfig(rest) {
		cfg, err = config.Load(path)
		if err != nil {
			fmt.Println("Error:", err)
			return 1
		}
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
		defer func() { _ = log.Sync() }()
	}
	return service.HandleCommand(cfg, log, rest)
}

// splitConfigFlag removes --config <file> or --config=<file> from args.
func splitConfigFlag(args []string) (string, []string, error) {
	var path string
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config" || arg == "-c":
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("%s needs a file argument", arg)
			}
			path = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		default:
			rest = append(rest, arg)
		}
	}
	return path, rest, nil
}
