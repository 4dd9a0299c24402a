// Package cli wires the cobra command tree: server, migrations and the
// terminal host/join clients.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	port       string
	configPath string
	serverURL  string
	userID     string
)

// Execute runs the CLI.
func Execute() error {
	_ = godotenv.Load()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	if envPort == "" {
		envPort = "8080"
	}
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}
	envServer := os.Getenv("QUIZ_SERVER_URL")
	if envServer == "" {
		envServer = "http://localhost:8080"
	}
	envUser := os.Getenv("QUIZ_USER_ID")

	cmd := &cobra.Command{
		Use:   "managemind-quiz",
		Short: "Live competitive quiz sessions with a practice mode",
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&serverURL, "server", envServer, "quiz server base URL")
	cmd.PersistentFlags().StringVar(&userID, "user", envUser, "user id for client commands")
	cmd.AddCommand(NewServeCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewHostCmd(&serverURL, &userID))
	cmd.AddCommand(NewJoinCmd(&serverURL, &userID))
	return cmd
}

// newLogger builds the process logger. LOG_LEVEL=debug switches to the
// development config.
func newLogger() (*zap.Logger, error) {
	if os.Getenv("LOG_LEVEL") == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
