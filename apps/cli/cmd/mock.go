package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/apiharness/packages/mock"
)

var (
	mockRoutesFlag string
	mockPortFlag   int
	mockDelayFlag  string
	mockRateFlag   float64
	mockBurstFlag  int
	mockWatchFlag  bool
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Start a mock server from a YAML routes file",
	Long: `Start an HTTP mock server that answers with the canned responses
declared in a routes file and records every request it receives.

The mock server:
- Matches routes by method and path, with chi path parameters (e.g., /users/{id})
- Replaces {{param}} placeholders in response bodies with path parameters
- Can add artificial delays to simulate network latency
- Can answer 429 Too Many Requests beyond a request rate
- Reloads the routes file on change with --watch

Routes file:
  routes:
    - method: POST
      path: /api/users
      response:
        status: 201
        body: {id: "123", name: Alice}
    - path: /api/users/{id}
      response:
        body: '{"id":"{{id}}"}'

Examples:
  apiharness mock --routes routes.yaml
  apiharness mock --routes routes.yaml --port 3000 --delay 100ms
  apiharness mock --routes routes.yaml --rate 5 --watch`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         mockCommand,
}

func init() {
	mockCmd.Flags().StringVarP(&mockRoutesFlag, "routes", "f", getEnvString("APIHARNESS_MOCK_ROUTES", "routes.yaml"), "YAML routes file (env: APIHARNESS_MOCK_ROUTES)")
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", getEnvInt("APIHARNESS_MOCK_PORT", 3000), "Port to run the mock server on (env: APIHARNESS_MOCK_PORT)")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().Float64Var(&mockRateFlag, "rate", 0, "Requests per second before answering 429 (0 disables)")
	mockCmd.Flags().IntVar(&mockBurstFlag, "burst", 1, "Requests allowed at once above --rate")
	mockCmd.Flags().BoolVarP(&mockWatchFlag, "watch", "w", false, "Reload the routes file when it changes")
}

func mockCommand(cmd *cobra.Command, args []string) error {
	// Parse delay
	var delay time.Duration
	if mockDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(mockDelayFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid delay value %q: %w", mockDelayFlag, err))
		}
	}

	routes, err := mock.LoadRoutes(mockRoutesFlag)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	if len(routes) == 0 {
		return withExitCode(ExitConfigError, fmt.Errorf("no routes found in %s", mockRoutesFlag))
	}

	server := mock.NewServer(
		mock.WithPort(mockPortFlag),
		mock.WithDelay(delay),
		mock.WithRateLimit(mockRateFlag, mockBurstFlag),
		mock.WithLogger(logger),
		mock.WithRoutes(routes...),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d routes from %s\n", len(server.GetRoutes()), mockRoutesFlag)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down mock server...")
		cancel()
	}()

	if mockWatchFlag {
		go func() {
			if err := server.Watch(ctx, mockRoutesFlag); err != nil {
				logger.Error("routes watcher stopped", zap.Error(err))
			}
		}()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Mock server listening on http://localhost:%d\n", mockPortFlag)
	return server.StartWithContext(ctx)
}
