package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/iurnickita/washportal/internal/clock"
	"github.com/iurnickita/washportal/internal/config"
	"github.com/iurnickita/washportal/internal/credstore"
	"github.com/iurnickita/washportal/internal/gateway"
	"github.com/iurnickita/washportal/internal/logger"
	"github.com/iurnickita/washportal/internal/service"
)

var ErrNoCommand = errors.New("no command given")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(explain(err))
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	cfg := config.GetConfig()

	fs := pflag.NewFlagSet("washportal", pflag.ContinueOnError)
	// флаги после имени команды принадлежат команде
	fs.SetInterspersed(false)
	config.AddFlags(fs, &cfg)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return ErrNoCommand
	}

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}
	defer zaplog.Sync()

	store, err := credstore.New(cfg.CredStore)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp(cfg, store, clock.Real(), in, out, zaplog)
	return a.exec(ctx, fs.Arg(0), fs.Args()[1:])
}

// explain переводит ошибки в подсказки для пользователя
func explain(err error) string {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return "not logged in or session expired: run `washportal login`"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "login failed: wrong email or password"
	case errors.Is(err, gateway.ErrNetwork):
		return fmt.Sprintf("portal is unreachable: %v", err)
	case errors.As(err, &verr):
		return verr.Error()
	default:
		return err.Error()
	}
}

const usage = `usage: washportal [global flags] <command> [flags]

commands:
  login      sign in and store the token pair
  logout     forget stored tokens
  status     show the stored session
  admin      check whether the account is an administrator
  places     list, add or delete pick-up places
  orders     list or cancel orders
  dates      show available dates for a system
  order      create an order
  documents  list or delete customer documents
  invoices   list invoices issued to the customer
  upload     upload a customer document
  serve      run the local schedule API

global flags:`
