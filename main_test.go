package main

import (
	"context"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/arcadelab/fruitbot-server/game/config"
	"github.com/arcadelab/fruitbot-server/game/score"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}
}

func TestNewRootCommand(t *testing.T) {
	cmd := newRootCommand()

	if cmd.Name != "fruitbot-server" {
		t.Errorf("Unexpected command name: %s", cmd.Name)
	}
	if cmd.Action == nil {
		t.Error("Expected a default action")
	}

	names := make(map[string]bool)
	for _, sub := range cmd.Commands {
		names[sub.Name] = true
	}
	for _, want := range []string{"serve", "scores"} {
		if !names[want] {
			t.Errorf("Expected %q subcommand", want)
		}
	}
}

func TestOverrideFromFlags(t *testing.T) {
	run := func(t *testing.T, args []string, check func(t *testing.T, cfg *config.Config)) {
		t.Helper()
		cmd := &cli.Command{
			Name:  "test",
			Flags: serveFlags(),
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := &config.Config{Host: "0.0.0.0", Port: 8002, ScoreDB: "scores.db"}
				overrideFromFlags(cfg, cmd)
				check(t, cfg)
				return nil
			},
		}
		if err := cmd.Run(context.Background(), args); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	}

	t.Run("no flags keeps defaults", func(t *testing.T) {
		run(t, []string{"test"}, func(t *testing.T, cfg *config.Config) {
			if cfg.Host != "0.0.0.0" || cfg.Port != 8002 || cfg.ScoreDB != "scores.db" {
				t.Errorf("Config unexpectedly changed: %+v", cfg)
			}
		})
	})

	t.Run("set flags override", func(t *testing.T) {
		run(t, []string{"test", "--host", "127.0.0.1", "--port", "9090", "--db", "other.db", "--debug"},
			func(t *testing.T, cfg *config.Config) {
				if cfg.Host != "127.0.0.1" {
					t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
				}
				if cfg.Port != 9090 {
					t.Errorf("Port = %d, want 9090", cfg.Port)
				}
				if cfg.ScoreDB != "other.db" {
					t.Errorf("ScoreDB = %s, want other.db", cfg.ScoreDB)
				}
				if !cfg.Debug {
					t.Error("Expected debug to be enabled")
				}
			})
	})
}

func TestNewLogger(t *testing.T) {
	if log := newLogger(false); log == nil {
		t.Error("Expected a logger")
	}
	if log := newLogger(true); log == nil {
		t.Error("Expected a debug logger")
	}
}

func TestFormatScoreTable(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := formatScoreTable(nil); got != "No scores recorded yet.\n" {
			t.Errorf("Unexpected empty table: %q", got)
		}
	})

	t.Run("entries", func(t *testing.T) {
		out := formatScoreTable([]score.Entry{
			{UserID: "alice", RecordedAt: "2026-08-31 12:00:00", Score: 12.5},
			{UserID: "bob", RecordedAt: "2026-08-31 11:59:00", Score: 7},
		})

		for _, want := range []string{"PLAYER", "alice", "12.5", "bob", "7.0"} {
			if !strings.Contains(out, want) {
				t.Errorf("Expected %q in table output:\n%s", want, out)
			}
		}
	})
}
