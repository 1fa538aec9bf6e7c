package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chatdrop/internal/app"
)

const (
	modeServer = "server"
	modeChat   = "chat"
	modeLocal  = "local"
	modeList   = "ls"
	modeGet    = "get"
	modeRemove = "rm"
	modePut    = "put"
)

func main() {
	_ = godotenv.Load()
	mode, args := parseMode(os.Args[1:])

	serverCfg, err := app.LoadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chatdrop: %v\n", err)
		os.Exit(1)
	}

	flagSet := flag.NewFlagSet("chatdrop", flag.ExitOnError)
	host := flagSet.String("host", serverCfg.Host, "server listen host")
	port := flagSet.Int("port", defaultPortForMode(mode, serverCfg.Port), "server listen port")
	uploads := flagSet.String("uploads", serverCfg.UploadDir, "upload directory")
	db := flagSet.String("db", serverCfg.DBPath, "sqlite metadata index path")
	serverURL := flagSet.String("server", envOrDefault("CHATDROP_SERVER", "http://localhost:3000"), "server URL for client modes")
	userName := flagSet.String("user", envOrDefault("CHATDROP_USER", ""), "display name")
	userID := flagSet.String("id", envOrDefault("CHATDROP_USER_ID", ""), "stable user id (random when empty)")
	dir := flagSet.String("dir", ".", "download directory for get")
	quiet := flagSet.Bool("quiet", false, "suppress informational logs")
	_ = flagSet.Parse(args)

	serverCfg.Host = *host
	serverCfg.Port = *port
	serverCfg.UploadDir = *uploads
	serverCfg.DBPath = *db
	if *quiet || mode == modeLocal {
		serverCfg.LogLevel = "ERROR"
	}
	log := logs.GetLoggerFromString(serverCfg.LogLevel)

	clientCfg := app.ClientConfig{
		ServerURL: *serverURL,
		UserID:    *userID,
		UserName:  *userName,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case modeServer:
		err = runServerMode(ctx, serverCfg, log)
	case modeLocal:
		err = runLocalMode(ctx, serverCfg, clientCfg, log)
	case modeList:
		err = app.ListFiles(ctx, clientCfg, os.Stdout)
	case modeGet:
		err = eachArg(flagSet.Args(), func(name string) error {
			target, err := app.GetFile(ctx, clientCfg, name, *dir)
			if err == nil {
				fmt.Printf("saved %s\n", target)
			}
			return err
		})
	case modeRemove:
		err = eachArg(flagSet.Args(), func(name string) error {
			message, err := app.RemoveFile(ctx, clientCfg, name)
			if err == nil {
				fmt.Printf("%s: %s\n", name, message)
			}
			return err
		})
	case modePut:
		err = eachArg(flagSet.Args(), func(path string) error {
			if err := app.PutFile(ctx, clientCfg, path); err != nil {
				return err
			}
			fmt.Printf("uploaded %s\n", path)
			return nil
		})
	default:
		err = app.RunClient(clientCfg)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "chatdrop: %v\n", err)
		os.Exit(1)
	}
}

func runServerMode(ctx context.Context, cfg app.ServerConfig, log *slog.Logger) error {
	handle, err := app.RunServer(ctx, cfg, log)
	if err != nil {
		return err
	}
	log.Info("chatdrop server ready", "addr", handle.Addr(), "uploads", cfg.UploadDir, "db", cfg.DBPath)
	return handle.Wait()
}

func runLocalMode(ctx context.Context, serverCfg app.ServerConfig, clientCfg app.ClientConfig, log *slog.Logger) error {
	handle, err := app.RunServer(ctx, serverCfg, log)
	if err != nil {
		return err
	}
	defer stopServer(handle)

	if err := waitForServer(handle.Addr(), 5*time.Second); err != nil {
		return err
	}
	clientCfg.ServerURL = buildServerURL(handle.Addr())
	log.Info("launching client", "server", clientCfg.ServerURL)

	if err := app.RunClient(clientCfg); err != nil {
		return err
	}
	stopServer(handle)
	return handle.Wait()
}

func eachArg(args []string, run func(string) error) error {
	if len(args) == 0 {
		return errors.New("at least one file name is required")
	}
	for _, arg := range args {
		if err := run(arg); err != nil {
			return fmt.Errorf("%s: %w", arg, err)
		}
	}
	return nil
}

func waitForServer(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server did not become ready: %w", err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func buildServerURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func parseMode(args []string) (string, []string) {
	if len(args) == 0 {
		return modeChat, args
	}
	switch mode := strings.ToLower(args[0]); mode {
	case modeServer, modeChat, modeLocal, modeList, modeGet, modeRemove, modePut:
		return mode, args[1:]
	}
	return modeChat, args
}

func defaultPortForMode(mode string, port int) int {
	if mode == modeLocal {
		return 0
	}
	return port
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func stopServer(handle *app.ServerHandle) {
	if handle == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = handle.Stop(shutdownCtx)
}
