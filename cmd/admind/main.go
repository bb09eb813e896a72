package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tgadmin/internal/app"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./admind.yaml", "path to config file (yaml or json)")
	flag.Parse()

	// Optional .env for TELEGRAM_BOT_TOKEN / ADMIN_PASSWORD.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}
