package app

import (
	"fmt"
	"io"
	log "log/slog"

	cli "github.com/spf13/pflag"

	"voicebridge/internal/config"
	"voicebridge/internal/core"
	"voicebridge/internal/logging"
	"voicebridge/internal/proxy"
	"voicebridge/internal/services"
)

// Flags shared by the binaries that run a pipeline.
type Flags struct {
	EnvFile     *string
	ProfilesDir *string
	Profile     *string
	LogLevel    *string
	LogFile     *string
	Proxy       *string
}

func RegisterFlags(fs *cli.FlagSet) *Flags {
	return &Flags{
		EnvFile:     fs.StringP("env", "e", ".env", "Env file path"),
		ProfilesDir: fs.String("profiles", "config/profiles", "Profiles directory"),
		Profile:     fs.StringP("profile", "P", "", "Profile name (default: $VOICEBRIDGE_PROFILE or \"default\")"),
		LogLevel:    fs.StringP("log", "l", "info", "Log level"),
		LogFile:     fs.String("log-file", "", "Also write logs to this file"),
		Proxy:       fs.StringP("proxy", "p", "", "Socks5 proxy address (default: $VOICEBRIDGE_PROXY)"),
	}
}

type App struct {
	Settings config.Settings
	Profiles config.Profiles
	Profile  *core.Profile
	Services *services.Set
	Log      *log.Logger

	logCloser io.Closer
}

// Boot sets up logging, reads settings and profiles and builds the
// capability set for the chosen profile.
func Boot(f *Flags) (*App, error) {
	logger, closer, err := logging.Setup(*f.LogLevel, *f.LogFile)
	if err != nil {
		return nil, err
	}

	a := &App{Log: logger, logCloser: closer}

	a.Settings, err = config.LoadSettings(*f.EnvFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Debug("Loaded settings", "env", *f.EnvFile)

	a.Profiles, err = config.LoadProfiles(*f.ProfilesDir)
	if err != nil {
		a.Close()
		return nil, err
	}

	name := *f.Profile
	if name == "" {
		name = a.Settings.Profile
	}
	if name == "" {
		a.Profile, err = a.Profiles.Default()
	} else {
		a.Profile, err = a.Profiles.Get(name)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	if a.Settings.OutputDevice != "" {
		p := *a.Profile
		p.OutputDevice = a.Settings.OutputDevice
		a.Profile = &p
	}
	logger.Info("Loaded profile", "profile", a.Profile.Name, "device", a.Profile.OutputDevice)

	proxyAddr := *f.Proxy
	if proxyAddr == "" {
		proxyAddr = a.Settings.Proxy
	}
	httpClient, err := proxy.NewClient(proxyAddr, a.Settings.RequestTimeout)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("proxy: %w", err)
	}
	if proxyAddr != "" {
		logger.Debug("Using socks proxy", "proxy", proxyAddr)
	}

	a.Services, err = services.Build(a.Settings, a.Profile, httpClient, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) Close() {
	if a.Services != nil {
		a.Services.Close()
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}
