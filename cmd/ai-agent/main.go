package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/ai"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/config"
)

type options struct {
	pool   string
	dryRun bool
}

func main() {
	queryFlag := flag.String("q", "", "Run a single natural language query and exit")
	modelFlag := flag.String("model", "", "OpenRouter model name (default AI_MODEL)")
	poolFlag := flag.String("pool", "", "Restrict questions to one pool name or address")
	dryRunFlag := flag.Bool("dry-run", false, "Print the generated SQL without running it")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.Load()
	if *modelFlag == "" {
		*modelFlag = cfg.AIModel
	}
	if cfg.OpenRouterAPIKey == "" {
		logger.Fatal("OPENROUTER_API_KEY is required for the zap analytics agent")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	agent, err := ai.NewAgent(ctx, ai.AgentConfig{
		ClickHouseAddr:     cfg.ClickHouseAddr,
		ClickHouseDatabase: cfg.ClickHouseDatabase,
		ClickHouseUsername: cfg.ClickHouseUsername,
		ClickHousePassword: cfg.ClickHousePassword,
		OpenRouterAPIKey:   cfg.OpenRouterAPIKey,
		Model:              *modelFlag,
		MaxRows:            cfg.AIMaxRows,
		Logger:             logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create AI agent")
	}
	defer agent.Close()

	opts := options{pool: *poolFlag, dryRun: *dryRunFlag}

	if *queryFlag != "" {
		if err := ask(ctx, agent, opts, *queryFlag); err != nil {
			logger.WithError(err).Fatal("query failed")
		}
		return
	}

	runREPL(ctx, agent, opts)
}

func ask(ctx context.Context, agent *ai.Agent, opts options, q string) error {
	q = ai.ScopeToPool(q, opts.pool)

	if opts.dryRun {
		sql, err := agent.Explain(ctx, q)
		if err != nil {
			return err
		}
		fmt.Printf("SQL:\n%s\n\n", sql)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	res, err := agent.Ask(ctx, q)
	if err != nil {
		return err
	}
	fmt.Printf("SQL:\n%s\n\nAnswer:\n%s\n\n", res.SQL, res.Answer)
	return nil
}

func runREPL(ctx context.Context, agent *ai.Agent, opts options) {
	fmt.Println("Zap analytics agent (NL → ClickHouse SQL over zaps)")
	if opts.pool != "" {
		fmt.Printf("Scoped to pool %s\n", opts.pool)
	}
	fmt.Println("Type your question and press Enter. Empty line to exit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("zap> ")
		if !scanner.Scan() {
			return
		}
		q := strings.TrimSpace(scanner.Text())
		if q == "" || ctx.Err() != nil {
			fmt.Println("bye")
			return
		}

		if err := ask(ctx, agent, opts, q); err != nil {
			fmt.Println("error:", err)
		}
	}
}
