package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"bestpay-client/internal/auth"
	"bestpay-client/internal/config"
	"bestpay-client/internal/logger"

	"go.uber.org/zap"
)

// Issues a service token for a settlement API client.
func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.L().Fatal("token not issued", zap.Error(err))
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	client := fs.String("client", "", "client id placed in the subject claim")
	scope := fs.String("scope", auth.ScopeSettle, "space-separated scopes: settle, query, audit")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *client == "" {
		return errors.New("-client is required")
	}

	cfg := config.LoadConfig()
	token, err := auth.GenerateServiceToken(*client, *scope, cfg.JWTSecret, *ttl)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, token)
	return err
}
