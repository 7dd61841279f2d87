package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"nhooyr.io/websocket"

	"github.com/remedia-app/remedia/internal/app"
	"github.com/remedia-app/remedia/internal/config"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"
	// Global flags
	cfgFile  string
	logLevel string
	noColor  bool

	// Global config and logger
	cfg    *config.Config
	v      *viper.Viper
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "remedia",
	Short: "A download manager for media URLs driven by yt-dlp",
	Long: `remedia manages a queue of media downloads powered by yt-dlp.

URLs arrive from the clipboard, from playlist expansion, or from remote
controllers over a local WebSocket. Downloads run concurrently with live
progress, and completed items are recorded in a searchable history.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for config init command
		if cmd.Name() == "init" && cmd.Parent().Name() == "config" {
			return nil
		}

		if err := config.InitializeDirs(); err != nil {
			return fmt.Errorf("failed to initialize directories: %w", err)
		}

		var err error
		cfg, v, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Override log level if specified
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		// Override color setting if specified
		if noColor {
			cfg.Logging.Color = false
		}

		logger, err = config.InitLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// Setup hot reload
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			logger.Info("config file changed", "name", e.Name)
			if err := v.Unmarshal(cfg); err != nil {
				logger.Error("failed to reload config", "error", err)
				return
			}
			if err := cfg.Downloads.Settings.Validate(); err != nil {
				logger.Error("reloaded download settings invalid, keeping previous", "error", err)
				return
			}
			if logLevel == "" {
				config.SetLogLevel(cfg.Logging.Level)
			}
			logger.Info("config reloaded")
		})

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("remedia starting", "version", version)

		a, err := app.New(cfg, v, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Seed the list with any URLs given on the command line.
		for _, url := range args {
			if err := a.ImportURL(url); err != nil {
				logger.Warn("url not imported", "url", url, "error", err)
			}
		}

		return a.Run(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/remedia/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(ctlCmd)
}

// versionCmd displays version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("remedia version %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
	},
}

// configCmd handles configuration operations
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			configPath = filepath.Join(config.ConfigDir(), "config.yaml")
		}

		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("failed to write default configuration: %w", err)
		}

		fmt.Printf("Default configuration generated at: %s\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Config file: %s\n", v.ConfigFileUsed())
		fmt.Printf("Log level: %s\n", cfg.Logging.Level)
		fmt.Printf("Output dir: %s\n", cfg.Downloads.OutputDir)
		fmt.Printf("Max concurrent: %d\n", cfg.Downloads.MaxConcurrent)
		fmt.Printf("Clipboard watch: %t\n", cfg.Clipboard.WatchEnabled)
		fmt.Printf("Remote control: %t (%s)\n", cfg.Remote.Enabled, cfg.Remote.Addr)
		fmt.Printf("History: %t (%s)\n", cfg.History.Enabled, cfg.History.Path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Display configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			fmt.Println(cfgFile)
		} else {
			fmt.Println(filepath.Join(config.ConfigDir(), "config.yaml"))
		}
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

// ctlCmd sends commands to a running remedia instance over its remote
// control socket.
var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "Control a running remedia instance",
}

var ctlAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a URL and start downloading",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd, map[string]any{"action": "addUrl", "url": args[0]})
	},
}

var ctlStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start downloading everything pending",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd, map[string]any{"action": "startDownloads"})
	},
}

var ctlCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel all queued and active downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd, map[string]any{"action": "cancelAll"})
	},
}

var ctlClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the download list",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd, map[string]any{"action": "clearList"})
	},
}

var ctlStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the download queue status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd, map[string]any{"action": "status"})
	},
}

var ctlSetDirCmd = &cobra.Command{
	Use:   "set-dir <path>",
	Short: "Set the download output directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd, map[string]any{"action": "setDownloadDir", "path": args[0]})
	},
}

func init() {
	ctlCmd.PersistentFlags().String("addr", "", "remote control address (default: configured remote.addr)")
	ctlCmd.AddCommand(ctlAddCmd)
	ctlCmd.AddCommand(ctlStartCmd)
	ctlCmd.AddCommand(ctlCancelCmd)
	ctlCmd.AddCommand(ctlClearCmd)
	ctlCmd.AddCommand(ctlStatusCmd)
	ctlCmd.AddCommand(ctlSetDirCmd)
}

// sendCommand dials the remote control socket, sends one command, and
// prints the matching ack.
func sendCommand(cmd *cobra.Command, payload map[string]any) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Remote.Addr
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+addr, nil)
	if err != nil {
		return fmt.Errorf("connect to %s (is remedia running with remote control enabled?): %w", addr, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send command: %w", err)
	}

	action := payload["action"].(string)
	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		var ack struct {
			OK     *bool  `json:"ok"`
			Action string `json:"action"`
			Error  string `json:"error"`
			Queued *int   `json:"queued"`
			Active *int   `json:"active"`
			Max    *int   `json:"max"`
		}
		if err := json.Unmarshal(frame, &ack); err != nil || ack.OK == nil || ack.Action != action {
			// Event envelopes and acks for other actions share the stream.
			continue
		}

		if !*ack.OK {
			return fmt.Errorf("%s failed: %s", action, ack.Error)
		}
		if ack.Queued != nil && ack.Active != nil && ack.Max != nil {
			fmt.Printf("Queued: %d\nActive: %d\nMax concurrent: %d\n", *ack.Queued, *ack.Active, *ack.Max)
		} else {
			fmt.Printf("%s: ok\n", action)
		}
		return nil
	}
}
