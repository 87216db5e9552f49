package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zhouzirui/mindpeers/client/internal/app"
	"github.com/zhouzirui/mindpeers/client/internal/cli/ui"
	"github.com/zhouzirui/mindpeers/client/internal/config"
	"github.com/zhouzirui/mindpeers/client/internal/logging"
	"github.com/zhouzirui/mindpeers/client/internal/service/session"
)

const version = "0.1.0"

var (
	serverFlag  string
	verboseFlag bool

	// current is the client assembled for the running command.
	current *app.App
	// newStore lets tests swap the on-disk identity file.
	newStore = func(cfg *config.Config) session.Store { return app.FileStore(cfg) }
)

var errNotLoggedIn = errors.New("not logged in")

// rootCmd is the root command
var rootCmd = &cobra.Command{
	Use:     "mindpeers",
	Short:   "MindPeers support chat client",
	Version: version,
	Long: `A terminal client for MindPeers, a confidential space to talk things through.

Messages are analysed by the MindPeers service. When a conversation shows signs
of distress the client surfaces support and crisis resources.`,
	Example: `  # Sign in and record consent
  $ mindpeers login -e you@example.com

  # Start the interactive conversation
  $ mindpeers chat

  # Show your mood timeline
  $ mindpeers trend

  # Point the client at another service
  $ mindpeers chat --server http://localhost:5000`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			_ = current.Log.Sync()
		}
	},
}

// Execute executes the root command
func Execute() error {
	rootCmd.SetVersionTemplate(formatVersion())
	return rootCmd.Execute()
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&serverFlag, "server", "s", "", "MindPeers service URL (overrides MINDPEERS_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Write logs to stderr")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(pingCmd)

	rootCmd.SetUsageTemplate(usageTemplate())
	rootCmd.SetHelpTemplate(usageTemplate())
}

// setup loads configuration, builds the logger, assembles the client and
// resumes a saved identity.
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		ui.PrintWarning("failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return fmt.Errorf("config load failed")
	}
	if serverFlag != "" {
		server, err := config.NormalizeBaseURL(serverFlag)
		if err != nil {
			ui.PrintError("%v", err)
			return fmt.Errorf("invalid server")
		}
		cfg.API.BaseURL = server
	}

	logger, err := logging.New(cfg.Log, !verboseFlag)
	if err != nil {
		ui.PrintError("failed to build logger: %v", err)
		return fmt.Errorf("logger setup failed")
	}
	zap.ReplaceGlobals(logger)

	a, err := app.New(cfg, newStore(cfg), logger)
	if err != nil {
		ui.PrintError("failed to create client: %v", err)
		return fmt.Errorf("client creation failed")
	}
	if _, err := a.Session.Resume(); err != nil {
		ui.PrintWarning("saved session could not be read: %v", err)
	}

	current = a
	return nil
}

// requireSession returns the resumed identity or tells the user to log in.
func requireSession() error {
	if _, ok := current.Session.Current(); ok {
		return nil
	}
	ui.PrintError("not logged in")
	ui.Println("\nRun 'mindpeers login' to sign in.")
	return errNotLoggedIn
}

func usageTemplate() string {
	return `{{if .Long}}{{.Long}}

{{end}}` + ui.Styles.Bold.Render("USAGE") + `
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}

{{if .HasExample}}` + ui.Styles.Bold.Render("EXAMPLES") + `
{{.Example}}

{{end}}{{if .HasAvailableSubCommands}}` + ui.Styles.Bold.Render("COMMANDS") + `{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableLocalFlags}}` + ui.Styles.Bold.Render("OPTIONS") + `
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}` + ui.Styles.Bold.Render("GLOBAL OPTIONS") + `
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
}

func formatVersion() string {
	return fmt.Sprintf("mindpeers version %s\n", version)
}
