package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"smallsh/internal/config"
	"smallsh/internal/history"
	"smallsh/internal/logger"
	"smallsh/internal/shell"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "smallsh",
	Short:         "A small interactive shell with background jobs",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	home, _ := os.UserHomeDir()
	rootCmd.Flags().StringVar(&cfgPath, "config", filepath.Join(home, config.DefaultFileName), "config file path")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

func run() error {
	fsys := afero.NewOsFs()

	cfg, err := config.Load(fsys, cfgPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log, logCloser, err := logger.Open(fsys, cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	hist, err := history.New(fsys, cfg.HistoryFile, cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("error initializing history: %w", err)
	}

	var (
		reader shell.LineReader
		out    io.Writer = os.Stdout
	)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		reader, out, err = shell.NewReadline(cfg.Prompt, hist.GetAll())
		if err != nil {
			return fmt.Errorf("error initializing readline: %w", err)
		}
	} else {
		reader = shell.NewPlainReader(cfg.Prompt, os.Stdin, os.Stdout)
	}
	defer reader.Close()

	s, err := shell.New(cfg, hist, shell.Options{
		Reader: reader,
		Out:    out,
		Stdio:  shell.DefaultStdio(),
		Log:    log,
	})
	if err != nil {
		return fmt.Errorf("error initializing shell: %w", err)
	}

	log.Info("shell started", "pid", os.Getpid())
	return s.Run()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
