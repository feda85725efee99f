package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rocketscienceinc/tictactoe-relay/internal/agent"
	"github.com/rocketscienceinc/tictactoe-relay/internal/config"
)

// main - runs a headless participant reading commands from stdin:
// create | join <id> | move <cell> | reset | quit.
func main() {
	configPath := flag.String("config", "./config.yml", "path to config file")
	url := flag.String("url", "", "relay url, defaults to ws://localhost:<socket-port>/ws")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: conf.SlogLevel()}))

	if *url == "" {
		*url = "ws://localhost:" + conf.SocketPort + "/ws"
	}

	if err := run(logger, *url, conf.Session.ErrorWindow); err != nil {
		logger.Error("agent failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, url string, errorWindow time.Duration) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := agent.Dial(ctx, logger, url, agent.New(errorWindow))
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		for state := range conn.Updates() {
			logger.Info("state",
				"session", state.SessionID,
				"mark", state.Mark,
				"phase", state.Phase,
				"turn", state.Turn,
				"board", state.Board,
			)

			if notice, ok := conn.Agent().ErrorNotice(time.Now()); ok {
				logger.Warn("server error", "message", notice)
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-conn.Done():
			return agent.ErrConnClosed
		case line, ok := <-lines:
			if !ok {
				return nil
			}

			if err = execute(conn, line); err != nil {
				logger.Warn("command rejected", "command", line, "error", err)
			}

			if strings.TrimSpace(line) == "quit" {
				return nil
			}
		}
	}
}

func execute(conn *agent.Conn, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "create":
		return conn.Create()
	case "join":
		if len(fields) != 2 {
			return fmt.Errorf("usage: join <session id>")
		}

		return conn.Join(fields[1])
	case "move":
		if len(fields) != 2 {
			return fmt.Errorf("usage: move <cell 0-8>")
		}

		cell, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("invalid cell %q: %w", fields[1], err)
		}

		return conn.Move(cell)
	case "reset":
		return conn.Reset()
	case "quit":
		return nil
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}
