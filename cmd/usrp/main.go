package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/josefcohen96/usrp/cmd/usrp/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := app.New(os.Stdout)
	defer a.Close()

	if err := a.Execute(ctx, os.Args[1:]); err != nil {
		a.Logger().Error(err.Error())

		cancel()
		_ = a.Close()
		os.Exit(1)
	}
}
