package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	_ "github.com/leeineian/jukebox/home"
	"github.com/leeineian/jukebox/sys"
)

const pidFile = ".bot.pid"

func main() {
	// LogFatal panics so that defers run
	defer func() {
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok {
				fmt.Fprintf(os.Stderr, "\n[FATAL] %s\n", msg)
				os.Exit(1)
			}
			panic(r)
		}
	}()

	silent := flag.Bool("silent", false, "Disable all log output")
	skipReg := flag.Bool("skip-reg", false, "Skip command registration")
	clearAll := flag.Bool("clear-all", false, "Force command registration even when unchanged")
	flag.Parse()

	cfg, err := sys.LoadConfig()
	if err != nil {
		sys.LogFatal(sys.MsgConfigFailedToLoad, err)
	}
	if *silent {
		cfg.Silent = true
	}
	sys.InitLogger(cfg.LogOptions())
	defer sys.CloseLogger()

	if err := sys.InitDatabase(context.Background(), cfg.DatabaseDSN()); err != nil {
		sys.LogFatal("Failed to initialize database: %v", err)
	}
	defer sys.CloseDatabase()

	if err := sys.InitServerConfigs(context.Background()); err != nil {
		sys.LogFatal("Failed to load server settings: %v", err)
	}

	sys.LogInfo(sys.MsgBotStarting, sys.GetProjectName())

	f, err := lockPIDFile()
	if err != nil {
		sys.LogFatal("Failed to lock PID file: %v", err)
	}
	release := func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		_ = os.Remove(pidFile)
	}

	if err := run(cfg, *skipReg, *clearAll); err != nil {
		release()
		sys.LogFatal("%v", err)
	}
	release()

	if sys.RestartRequested.Load() {
		sys.LogInfo(sys.MsgBotRestarting, sys.GetProjectName())
		sys.CloseDatabase()
		sys.CloseLogger()

		args := os.Args
		if !slices.Contains(args, "-skip-reg") {
			args = append(args, "-skip-reg")
		}
		exePath, err := os.Executable()
		if err != nil {
			sys.LogFatal("Failed to resolve executable path: %v", err)
		}
		if err := syscall.Exec(exePath, args, os.Environ()); err != nil {
			sys.LogFatal("Failed to re-execute: %v", err)
		}
	}
}

// lockPIDFile takes an exclusive lock on the PID file, terminating any
// instance that holds it, and records our PID.
func lockPIDFile() (*os.File, error) {
	f, err := os.OpenFile(pidFile, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			_ = f.Close()
			return nil, err
		}

		var oldPid int
		_, _ = f.Seek(0, 0)
		if _, err := fmt.Fscanf(f, "%d", &oldPid); err != nil || oldPid == os.Getpid() {
			<-ticker.C
			continue
		}
		terminate(oldPid, ticker)
	}

	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "%d", os.Getpid())
	_ = f.Sync()
	return f, nil
}

func terminate(pid int, ticker *time.Ticker) {
	process, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	sys.LogInfo(sys.MsgBotKillingOld, pid)
	if err := process.Signal(syscall.SIGTERM); err != nil {
		sys.LogWarn(sys.MsgBotKillFail, err)
		return
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case <-ticker.C:
			if process.Signal(syscall.Signal(0)) != nil {
				sys.LogInfo(sys.MsgBotOldTerminated)
				return
			}
		case <-timeout:
			sys.LogWarn("Old process %d is stubborn. Sending SIGKILL...", pid)
			_ = process.Signal(syscall.SIGKILL)
			return
		}
	}
}

func run(cfg *sys.Config, skipReg, clearAll bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sys.SetAppContext(ctx)

	client, err := sys.CreateClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create Discord client: %w", err)
	}
	defer client.Close(context.Background())

	if !skipReg {
		if err := sys.RegisterCommands(ctx, client, cfg.GuildID, clearAll); err != nil {
			sys.LogError(sys.MsgBotRegisterFail, err)
		}
	} else {
		sys.LogInfo("Skipping command registration as requested.")
	}

	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	<-ctx.Done()

	sys.LogInfo("Shutting down all daemons...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	sys.ShutdownDaemons(shutdownCtx)

	if self, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, self.Username)
	} else {
		sys.LogInfo(sys.MsgBotShutdown, sys.GetProjectName())
	}
	return nil
}
