// Command garden-controller drives the garden light and irrigation valve and
// reports to a ThingsBoard-style MQTT broker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sweeney/garden-controller/internal/app"
	"github.com/sweeney/garden-controller/internal/config"
	"github.com/sweeney/garden-controller/internal/logic"
	"github.com/sweeney/garden-controller/internal/metrics"
	"github.com/sweeney/garden-controller/internal/mqtt"
	"github.com/sweeney/garden-controller/internal/remoteconfig"
	"github.com/sweeney/garden-controller/internal/status"
	"github.com/sweeney/garden-controller/internal/store"
	"github.com/sweeney/garden-controller/internal/web"
)

var version = "dev"

var (
	configFile string
	rootCmd    = &cobra.Command{
		Use:   "garden-controller",
		Short: "Garden light and irrigation controller",
		Long:  "Arbitrates the garden light and irrigation valve from local sensors, a push button and remote commands.",
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the controller",
		RunE:  runController,
	}

	stateCmd = &cobra.Command{
		Use:   "state",
		Short: "Print the persisted runtime parameters and exit",
		RunE:  printState,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "garden-controller %s\n", version)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath, "Configuration file path")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file. A missing file at the default path
// falls back to defaults so a bare install still starts.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) && path == config.DefaultPath {
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
		return config.Default(), nil
	}
	return cfg, err
}

func setupLogging(level string) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := setupLogging(cfg.Logging.Level); err != nil {
		return err
	}

	ctx := context.Background()

	st, err := store.OpenSQLite(ctx, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	hw, err := openHardware(cfg)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer hw.Close()

	m := metrics.New()

	tracker := status.NewTracker(time.Now(), status.Config{
		DeviceName:     cfg.Device.Name,
		CycleMs:        cfg.CyclePeriod().Milliseconds(),
		DebounceMs:     cfg.Debounce().Milliseconds(),
		Broker:         cfg.MQTT.Broker,
		HTTPAddr:       cfg.HTTP.Addr,
		LightPolicy:    cfg.Policies.Light,
		WateringPolicy: cfg.Policies.Watering,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	clientID := app.ClientID(ctx, st, cfg.Device.Name)
	transport := mqtt.NewPahoTransport(mqtt.PahoConfig{
		Broker:      cfg.MQTT.Broker,
		ClientID:    clientID,
		AccessToken: cfg.MQTT.AccessToken,
	})

	ctrl, err := app.New(app.Options{
		LightPolicy:    logic.LightPolicyName(cfg.Policies.Light),
		WateringPolicy: logic.WateringPolicyName(cfg.Policies.Watering),
		Session: mqtt.SessionConfig{
			RetryInterval:  cfg.RetryInterval(),
			ConnectTimeout: cfg.ConnectTimeout(),
		},
	}, app.Deps{
		Light:     hw.light,
		Valve:     hw.valve,
		Button:    hw.button,
		Sensors:   buildSensors(cfg, hw),
		Store:     st,
		Transport: transport,
		Tracker:   tracker,
		Metrics:   m,
	})
	if err != nil {
		return err
	}
	defer ctrl.Shutdown()

	ctrl.Begin(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if s := dialUntilSignal(ctx, ctrl, cfg.StartupTimeout(), sigCh); s != nil {
		log.Info().Str("signal", signalName(s)).Msg("shutting down during startup")
		return nil
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, m)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http status server listening")
	}

	log.Info().
		Str("device", cfg.Device.Name).
		Str("client_id", clientID).
		Str("broker", cfg.MQTT.Broker).
		Str("light_policy", cfg.Policies.Light).
		Str("watering_policy", cfg.Policies.Watering).
		Dur("cycle", cfg.CyclePeriod()).
		Msg("started")

	ticker := time.NewTicker(cfg.CyclePeriod())
	defer ticker.Stop()

	return runLoop(ctx, ctrl, tracker, time.Now, ticker.C, sigCh)
}

type dialer interface {
	Dial(ctx context.Context) error
}

// dialUntilSignal runs the bounded startup connect. A signal cancels it and
// is returned so the caller can shut down cleanly; nil means carry on.
func dialUntilSignal(ctx context.Context, d dialer, timeout time.Duration, sig <-chan os.Signal) os.Signal {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Dial(dialCtx) }()

	select {
	case err := <-done:
		if err != nil {
			log.Warn().Err(err).Msg("broker unreachable at startup, continuing offline")
		}
		return nil
	case s := <-sig:
		cancel()
		<-done
		return s
	}
}

// stepper is one control cycle.
type stepper interface {
	Step(ctx context.Context, now time.Time)
}

// networkRefresh is how often the pi-helper environment is re-read.
const networkRefresh = 15 * time.Minute

func runLoop(ctx context.Context, ctrl stepper, tracker *status.Tracker, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastNetwork := now()
	for {
		select {
		case s := <-sig:
			log.Info().Str("signal", signalName(s)).Msg("shutting down")
			return nil

		case <-tick:
			t := now()
			ctrl.Step(ctx, t)

			if tracker != nil && t.Sub(lastNetwork) >= networkRefresh {
				lastNetwork = t
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

func printState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := setupLogging(cfg.Logging.Level); err != nil {
		return err
	}

	ctx := context.Background()
	st, err := store.OpenSQLite(ctx, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	return writeState(ctx, cmd.OutOrStdout(), st)
}

// writeState prints the parameters a restart would come up with.
func writeState(ctx context.Context, w io.Writer, st store.Store) error {
	params := logic.DefaultParameters()
	settings := logic.DefaultSettings()
	loaded, err := remoteconfig.New(&params, &settings, st).Begin(ctx)
	if err != nil {
		return err
	}

	tracker := status.NewTracker(time.Now(), status.Config{})
	tracker.SetParams(params)
	out := struct {
		Persisted bool              `json:"persisted"`
		Params    status.ParamsJSON `json:"params"`
	}{
		Persisted: loaded,
		Params:    status.Build(tracker.Snapshot()).Status.Params,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
