package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gocksec/skunk/internal/ca"
	"github.com/gocksec/skunk/internal/config"
	"github.com/gocksec/skunk/internal/httppump"
	"github.com/gocksec/skunk/internal/mitm"
	"github.com/gocksec/skunk/internal/socks5"
	"github.com/gocksec/skunk/internal/tlsmitm"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "run":
			handleRunCommand(os.Args[2:])
			return
		case "ca":
			handleCACommand(os.Args[2:])
			return
		case "proxy":
			handleProxyCommand(os.Args[2:])
			return
		case "version", "-version", "--version":
			fmt.Printf("skunk %s (%s)\n", version, commit)
			return
		case "help", "-help", "--help":
			printHelp()
			return
		}
	}

	printHelp()
	os.Exit(1)
}

func printHelp() {
	fmt.Printf(`skunk - interactive TLS-intercepting SOCKS5 proxy

USAGE:
    skunk <command> [options]

COMMANDS:
    ca                Generate or inspect the interception CA certificate
    proxy             Start the SOCKS5 proxy and MITM engine
    run <command>     Run a command with its HTTP clients pointed at skunk
    version           Show version information
    help              Show this help message

EXAMPLES:
    skunk ca                       Generate the CA certificate (first-time setup)
    skunk proxy                    Start the proxy with default config
    skunk proxy --socks :1080      Start the proxy on a specific SOCKS5 address
    skunk run curl https://api.anthropic.com/v1/messages

CONFIGURATION:
    Config file locations (in order of precedence):
    - Path specified with -config
    - %%APPDATA%%\skunk\config.yaml (Windows)
    - ~/.config/skunk/config.yaml (Unix)

    Environment variables can override config:
    - SKUNK_SOCKS_LISTEN      SOCKS5 listen address
    - SKUNK_CA_KEY_PATH       CA private key path
    - SKUNK_CA_CERT_PATH      CA certificate path
    - SKUNK_SOCKS_USERNAME    SOCKS5 username (RFC 1929)
    - SKUNK_SOCKS_PASSWORD    SOCKS5 password (RFC 1929)

Run 'skunk <command> -help' for command-specific options.
`)
}

// handleCACommand handles the "ca" subcommand: generate-or-load the
// interception root and print its path and trust instructions.
func handleCACommand(args []string) {
	caFlags := flag.NewFlagSet("ca", flag.ExitOnError)
	configPath := caFlags.String("config", "", "Path to config file")
	force := caFlags.Bool("force", false, "Regenerate the CA even if one already exists")
	showHelp := caFlags.Bool("help", false, "Show help")
	_ = caFlags.Parse(args)

	if *showHelp {
		printCAHelp()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		printError("Failed to load configuration", err, configLoadFix(""))
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		printError("Failed to determine config directory", err, configLoadFix(""))
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		printError("Failed to create config directory", err, caPermissionFix(configDir))
	}

	root, err := loadOrCreateCA(cfg.CA.KeyPath, cfg.CA.CertPath, *force)
	if err != nil {
		if isPermissionError(err) {
			printError("Failed to load/create CA certificate", err, caPermissionFix(configDir))
		} else if isCorruptCert(err) {
			printError("CA certificate is corrupted", err, caCorruptFix(configDir))
		} else {
			printError("Failed to load/create CA certificate", err, caCorruptFix(configDir))
		}
	}
	_ = root

	fmt.Println("CA certificate:", cfg.CA.CertPath)
	fmt.Println()
	fmt.Println("To trust this CA:")
	fmt.Println("  macOS:   sudo security add-trusted-cert -d -r trustRoot -k /Library/Keychains/System.keychain " + cfg.CA.CertPath)
	fmt.Println("  Linux:   sudo cp " + cfg.CA.CertPath + " /usr/local/share/ca-certificates/skunk.crt && sudo update-ca-certificates")
	fmt.Println("  Windows: certutil -addstore -f \"ROOT\" " + cfg.CA.CertPath)
}

func printCAHelp() {
	fmt.Printf(`Usage: skunk ca [options]

Generates (or loads, if one already exists) the interception CA certificate
and prints its path plus platform-specific trust instructions.

Options:
    --force    Regenerate the CA even if a key/cert pair already exists
    --help     Show this help message
`)
}

// loadOrCreateCA opens the CA at keyPath/certPath, or generates and saves a
// fresh one if either file is missing or force is set.
func loadOrCreateCA(keyPath, certPath string, force bool) (*ca.CA, error) {
	if !force {
		if root, err := ca.Open(keyPath, certPath); err == nil {
			return root, nil
		}
	}

	root, err := ca.Generate()
	if err != nil {
		return nil, err
	}
	if err := root.Save(keyPath, certPath); err != nil {
		return nil, err
	}
	return root, nil
}

// handleProxyCommand handles the "proxy" subcommand: start the SOCKS5
// server and MITM orchestrator.
func handleProxyCommand(args []string) {
	proxyFlags := flag.NewFlagSet("proxy", flag.ExitOnError)
	configPath := proxyFlags.String("config", "", "Path to config file")
	socksAddr := proxyFlags.String("socks", "", "SOCKS5 listen address (overrides config)")
	debugMode := proxyFlags.Bool("debug", false, "Enable debug logging")
	noGraceful := proxyFlags.Bool("no-graceful-shutdown", false, "Exit immediately on signal instead of draining connections")
	showHelp := proxyFlags.Bool("help", false, "Show help")
	_ = proxyFlags.Parse(args)

	if *showHelp {
		printProxyHelp()
		return
	}

	logLevel := slog.LevelInfo
	if *debugMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		printError("Failed to load configuration", err, configLoadFix(*configPath))
	}
	if *socksAddr != "" {
		cfg.Proxy.SocksListen = *socksAddr
	}
	if *noGraceful {
		cfg.Shutdown.Graceful = false
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		printError("Failed to determine config directory", err, configLoadFix(""))
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		printError("Failed to create config directory", err, caPermissionFix(configDir))
	}

	root, err := loadOrCreateCA(cfg.CA.KeyPath, cfg.CA.CertPath, false)
	if err != nil {
		if isPermissionError(err) {
			printError("Failed to load/create CA certificate", err, caPermissionFix(configDir))
		} else if isCorruptCert(err) {
			printError("CA certificate is corrupted", err, caCorruptFix(configDir))
		} else {
			printError("Failed to load/create CA certificate", err, caCorruptFix(configDir))
		}
	}
	logger.Info("CA loaded", "path", cfg.CA.CertPath)

	tlsCtx, err := tlsmitm.NewContext(root, tlsmitm.DefaultMaxCacheSize)
	if err != nil {
		slog.Error("failed to build TLS interception context", "error", err)
		os.Exit(1)
	}

	const maxPortAttempts = 10
	socksLn, actualSocksAddr, err := listenWithFallback(cfg.Proxy.SocksListenAddr(), maxPortAttempts)
	if err != nil {
		printError("Failed to bind SOCKS5 server", err, portInUseFix(cfg.Proxy.SocksListenAddr(), maxPortAttempts))
	}
	logger.Info("SOCKS5 server bound", "addr", actualSocksAddr)

	var auth socks5.AuthProvider = socks5.NoAuthProvider{}
	if cfg.Auth.Username != "" {
		auth = &socks5.UserPassAuthProvider{
			Credentials: []socks5.UserPassCredentials{{Username: cfg.Auth.Username, Password: cfg.Auth.Password}},
		}
	}
	server := socks5.NewServer(auth, 64, logger)

	token := mitm.NewCancellationToken(nil)
	tracker := mitm.NewConnTracker()
	orch := &mitm.Orchestrator{
		TLS:     tlsCtx,
		Filter:  mitm.TargetFilter{Intercept: cfg.Targets.Intercept, PassThrough: cfg.Targets.PassThrough},
		Handler: transparentHandler,
		Logger:  logger,
		Tracker: tracker,
		Token:   token,
	}

	stateStore, err := NewFileStateStore()
	if err == nil {
		stateStore.Write(ServerState{
			SOCKSAddr: actualSocksAddr,
			CAPath:    cfg.CA.CertPath,
			PID:       os.Getpid(),
			StartedAt: time.Now(),
		})
		defer stateStore.Delete()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		token.Cancel()
		socksLn.Close()
	}()

	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "  SOCKS5: %s\n", actualSocksAddr)
	fmt.Fprintf(os.Stderr, "  CA:     %s\n", cfg.CA.CertPath)
	fmt.Fprintln(os.Stderr)
	fmt.Fprint(os.Stderr, formatEnvVars(actualSocksAddr, cfg.CA.CertPath, runtime.GOOS))

	go orch.Run(server.Requests)

	if err := server.Listen(socksLn); err != nil && !token.Cancelled() {
		logger.Error("SOCKS5 server error", "error", err)
	}

	if cfg.Shutdown.Graceful {
		logger.Info("draining in-flight connections", "count", tracker.Len())
		drained := make(chan struct{})
		go func() {
			tracker.Drain()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(cfg.Shutdown.Timeout):
			logger.Warn("graceful shutdown timed out")
		}
	}

	logger.Info("skunk proxy shutdown complete")
}

// transparentHandler forwards every request upstream unmodified: the
// default proxy policy absent any interactive inspection hook.
func transparentHandler(req *http.Request, send httppump.SendRequest) (*http.Response, error) {
	return send(req)
}

func printProxyHelp() {
	fmt.Printf(`Usage: skunk proxy [options]

Starts the SOCKS5 server and the MITM interception engine.

Options:
    -config <path>            Path to configuration file
    -socks <addr>              SOCKS5 listen address (default: from config or localhost:1080)
    -debug                     Enable debug logging
    -no-graceful-shutdown      Exit immediately on signal instead of draining connections

Examples:
    skunk proxy
    skunk proxy -socks :1080
    skunk proxy -config ./my.yaml
`)
}
