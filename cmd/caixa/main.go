package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"

	"github.com/zombor/caixa/internal/register"
	"github.com/zombor/caixa/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("caixa")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "caixa.db", "Database file path")
		reportsPath    = fs.StringLong("reports", "./fechamentos", "Directory for close-out reports")
		cashFund       = fs.StringLong("cash-fund", "200.00", "Fixed cash fund kept in the drawer")
		operator       = fs.StringLong("operator", "", "Operator name printed on close-out reports")
		recordsBlocked = fs.BoolLong("records-blocked", "Refuse saving the session and recording cancellations")
		printMode      = fs.StringLong("print", "pdf", "Print output: 'pdf' or 'none'")
		scannerType    = fs.StringLong("scanner", "none", "Check scanner: 'gemini', 'ollama' or 'none'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama vision model name")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("CAIXA"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	fund, err := decimal.NewFromString(*cashFund)
	if err != nil || fund.IsNegative() {
		slog.Error("Invalid cash fund", "value", *cashFund)
		os.Exit(1)
	}

	slog.Info("Initializing database...", "path", *dbPath)
	db, err := register.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing report storage...", "path", *reportsPath)
	storage, err := register.NewLocalStorage(*reportsPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	var printer register.Printer
	switch *printMode {
	case "pdf":
		printer = register.NewPDFPrinter(storage)
	case "none":
		printer = register.NopPrinter{}
	default:
		slog.Error("Invalid print mode", "mode", *printMode, "valid", "pdf or none")
		os.Exit(1)
	}

	var scanner scanning.Scanner
	switch *scannerType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini scanner...", "model", *geminiModel)
		scanner, err = scanning.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", *ollamaURL, "model", *ollamaModel)
		scanner, err = scanning.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	case "none":
		slog.Info("Check scanning disabled")
	default:
		slog.Error("Invalid scanner type", "type", *scannerType, "valid", "gemini, ollama or none")
		os.Exit(1)
	}
	if scanner != nil {
		defer scanner.Close()
	}

	if *recordsBlocked {
		slog.Warn("Record creation blocked; saving and cancellations will be refused")
	}

	store := register.NewStore(db, register.StaticAccess(!*recordsBlocked), fund)
	closeOut := register.NewCloseOut(store, db, storage, printer, *operator)

	basicAuth := register.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	server := register.NewServer(store, closeOut, scanner, basicAuth)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "cash_fund", fund.StringFixed(2))
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	slog.Info("Shutting down...")
}
