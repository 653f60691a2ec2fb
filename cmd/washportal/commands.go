package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/iurnickita/washportal/internal/clock"
	"github.com/iurnickita/washportal/internal/config"
	"github.com/iurnickita/washportal/internal/credstore"
	"github.com/iurnickita/washportal/internal/gateway"
	"github.com/iurnickita/washportal/internal/handler"
	"github.com/iurnickita/washportal/internal/model"
	"github.com/iurnickita/washportal/internal/schedule"
	"github.com/iurnickita/washportal/internal/service"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrDayRejected    = errors.New("day cannot be selected")
	ErrDateRejected   = errors.New("date is not available")
)

type app struct {
	cfg       config.Config
	in        io.Reader
	out       io.Writer
	scheduler *schedule.Scheduler
	service   service.Service
	zaplog    *zap.Logger
}

func newApp(cfg config.Config, store credstore.Store, clk clock.Clock, in io.Reader, out io.Writer, zaplog *zap.Logger) *app {
	gw := gateway.New(cfg.Gateway, store, zaplog)
	scheduler := schedule.NewScheduler(cfg.Schedule, clk)
	return &app{
		cfg:       cfg,
		in:        in,
		out:       out,
		scheduler: scheduler,
		service:   service.NewService(gw, store, scheduler, clk, zaplog),
		zaplog:    zaplog,
	}
}

func (a *app) exec(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.service.Logout(ctx)
	case "status":
		return a.status(ctx)
	case "admin":
		return a.admin(ctx)
	case "places":
		return a.places(ctx, args)
	case "orders":
		return a.orders(ctx, args)
	case "dates":
		return a.dates(args)
	case "order":
		return a.order(ctx, args)
	case "documents":
		return a.documents(ctx, args)
	case "invoices":
		return a.invoices(ctx)
	case "upload":
		return a.upload(ctx, args)
	case "serve":
		return a.serve(args)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (read from stdin when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *password == "" {
		line, err := bufio.NewReader(a.in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	if err := a.service.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged in")
	return nil
}

func (a *app) status(ctx context.Context) error {
	st, err := a.service.Status(ctx)
	if err != nil {
		return err
	}
	if !st.LoggedIn {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}

	fmt.Fprintf(a.out, "logged in as user %s\n", st.User)
	fmt.Fprintf(a.out, "access token:  %s\n", expiryText(st.AccessExpiresAt, st.AccessExpired))
	fmt.Fprintf(a.out, "refresh token: %s\n", expiryText(st.RefreshExpiresAt, st.RefreshExpired))
	return nil
}

func expiryText(at time.Time, expired bool) string {
	switch {
	case expired:
		return "expired"
	case at.IsZero():
		return "valid"
	default:
		return "valid until " + at.Local().Format(time.DateTime)
	}
}

func (a *app) admin(ctx context.Context) error {
	isAdmin, err := a.service.IsAdmin(ctx)
	if err != nil {
		return err
	}
	if isAdmin {
		fmt.Fprintln(a.out, "administrator")
	} else {
		fmt.Fprintln(a.out, "customer")
	}
	return nil
}

func (a *app) places(ctx context.Context, args []string) error {
	var place model.Place
	fs := pflag.NewFlagSet("places", pflag.ContinueOnError)
	fs.StringVar(&place.Name, "add", "", "create a place with this name")
	fs.StringVar(&place.City, "city", "", "city of the new place")
	fs.StringVar(&place.Street, "street", "", "street of the new place")
	fs.StringVar(&place.Number, "number", "", "house number of the new place")
	fs.IntVar(&place.Zip, "zip", 0, "postal code of the new place")
	fs.StringVar(&place.Person, "person", "", "contact person")
	fs.StringVar(&place.Phone, "phone", "", "contact phone")
	fs.StringVar(&place.Email, "email", "", "contact email")
	remove := fs.Int("delete", 0, "delete the place with this id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *remove != 0:
		if err := a.service.DeletePlace(ctx, *remove); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "place %d deleted\n", *remove)
		return nil
	case place.Name != "":
		created, err := a.service.CreatePlace(ctx, place)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "place %d created\n", created.ID)
		return nil
	}

	places, err := a.service.ListPlaces(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tADDRESS")
	for _, p := range places {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", p.ID, p.Name, placeAddress(p))
	}
	return tw.Flush()
}

func placeAddress(p model.Place) string {
	if p.Street == "" && p.City == "" {
		return "-"
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s, %d %s", p.Street, p.Number, p.Zip, p.City))
}

func (a *app) orders(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("orders", pflag.ContinueOnError)
	cancel := fs.Int("cancel", 0, "cancel the order with this id")
	current := fs.Bool("current", false, "only running weekly orders")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *cancel != 0 {
		if err := a.service.CancelOrder(ctx, *cancel); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "order %d canceled\n", *cancel)
		return nil
	}

	list := a.service.ListOrders
	if *current {
		list = a.service.CurrentOrders
	}
	orders, err := list(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPLACE\tTYPE\tSYSTEM\tPICKUP\tDELIVERY\tWEEKLY\tACTIVE")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%t\t%t\n",
			o.ID, o.PlaceName, o.TypeShip, orderSystem(o), o.DatePickup, o.DateDelivery, o.EveryWeek, o.Active)
	}
	return tw.Flush()
}

// orderSystem - система заказа или отмеченные дни для собственной
func orderSystem(o model.Order) string {
	if o.System != nil {
		return *o.System
	}
	var days schedule.DaySet
	for d, on := range map[time.Weekday]bool{
		time.Monday:    o.Monday,
		time.Tuesday:   o.Tuesday,
		time.Wednesday: o.Wednesday,
		time.Thursday:  o.Thursday,
		time.Friday:    o.Friday,
	} {
		if on {
			days = days.With(d)
		}
	}
	if days.Empty() {
		return "-"
	}
	return string(schedule.Own) + ":" + days.String()
}

func (a *app) dates(args []string) error {
	fs := pflag.NewFlagSet("dates", pflag.ContinueOnError)
	system := fs.String("system", "", "Mon_Wed_Fri, Tue_Thu, Every_day or Own")
	days := fs.StringSlice("days", nil, "days for the Own system, e.g. mon,fri")
	once := fs.Bool("once", false, "dates for a one-time order")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var pattern schedule.Pattern
	if *once {
		pattern = schedule.OneTimePattern{}
	} else {
		sys, err := schedule.ParseSystem(*system)
		if err != nil {
			return err
		}
		pattern = schedule.FixedPattern{System: sys}
		if sys == schedule.Own {
			set, err := schedule.ParseDays(*days...)
			if err != nil {
				return err
			}
			pattern = schedule.CustomPattern{Days: set}
		}
	}

	for _, d := range a.scheduler.AvailableDates(pattern) {
		fmt.Fprintf(a.out, "%s %s\n", d.Format(model.DateLayout), d.Weekday().String()[:3])
	}
	return nil
}

type orderFlags struct {
	place    int
	shipment string
	system   string
	days     []string
	start    string
	pickup   string
	delivery string
	once     bool
	note     string
	terms    bool
}

func (a *app) order(ctx context.Context, args []string) error {
	var of orderFlags
	fs := pflag.NewFlagSet("order", pflag.ContinueOnError)
	fs.IntVar(&of.place, "place", 0, "pick-up place id")
	fs.StringVar(&of.shipment, "type", "", "exchange (same day) or split (different days)")
	fs.StringVar(&of.system, "system", "", "Mon_Wed_Fri, Tue_Thu, Every_day or Own")
	fs.StringSliceVar(&of.days, "days", nil, "days for the Own system, e.g. mon,thu")
	fs.StringVar(&of.start, "start", "", "first date of a weekly order, YYYY-MM-DD")
	fs.StringVar(&of.pickup, "pickup", "", "pick-up date of a one-time order, YYYY-MM-DD")
	fs.StringVar(&of.delivery, "delivery", "", "delivery date of a one-time order, YYYY-MM-DD")
	fs.BoolVar(&of.once, "once", false, "one-time order")
	fs.StringVar(&of.note, "note", "", "note for the courier")
	fs.BoolVar(&of.terms, "accept-terms", false, "accept the terms of use")
	if err := fs.Parse(args); err != nil {
		return err
	}

	form, err := a.buildForm(of)
	if err != nil {
		return err
	}
	created, err := a.service.CreateOrder(ctx, form)
	if err != nil {
		return err
	}

	if created.ID != 0 {
		fmt.Fprintf(a.out, "order %d created\n", created.ID)
	} else {
		fmt.Fprintln(a.out, "order created")
	}
	return nil
}

// buildForm прогоняет флаги через редьюсер формы, как если бы их вводили по одному
func (a *app) buildForm(of orderFlags) (schedule.Form, error) {
	f := schedule.Form{}
	s := a.scheduler

	f = s.Reduce(f, schedule.SetPlace{ID: of.place})
	f = s.Reduce(f, schedule.SetEveryWeek{On: !of.once})

	if of.shipment != "" {
		shipment, err := parseShipment(of.shipment)
		if err != nil {
			return f, err
		}
		f = s.Reduce(f, schedule.SetShipmentType{Type: shipment})
	}
	if of.system != "" {
		sys, err := schedule.ParseSystem(of.system)
		if err != nil {
			return f, err
		}
		f = s.Reduce(f, schedule.SetSystem{System: sys})
		if f.System != sys {
			return f, fmt.Errorf("system %s is not allowed for shipment type %s", sys, f.Shipment)
		}
	}

	days, err := schedule.ParseDays(of.days...)
	if err != nil {
		return f, err
	}
	for _, d := range days.Days() {
		f = s.Reduce(f, schedule.ToggleDay{Day: d})
		if !f.Days.Has(d) {
			return f, fmt.Errorf("%w: %s", ErrDayRejected, d)
		}
	}

	loc := s.Today().Location()
	if of.start != "" {
		d, err := time.ParseInLocation(model.DateLayout, of.start, loc)
		if err != nil {
			return f, err
		}
		f = s.Reduce(f, schedule.SetStartDay{Date: d})
		if !f.StartDay.Equal(d) {
			return f, fmt.Errorf("%w: %s", ErrDateRejected, of.start)
		}
	}
	if of.pickup != "" {
		d, err := time.ParseInLocation(model.DateLayout, of.pickup, loc)
		if err != nil {
			return f, err
		}
		f = s.Reduce(f, schedule.SetPickup{Date: d})
	}
	if of.delivery != "" {
		d, err := time.ParseInLocation(model.DateLayout, of.delivery, loc)
		if err != nil {
			return f, err
		}
		f = s.Reduce(f, schedule.SetDelivery{Date: d})
		if !f.Delivery.Equal(d) {
			return f, fmt.Errorf("%w: %s", ErrDateRejected, of.delivery)
		}
	}

	f = s.Reduce(f, schedule.SetNote{Text: of.note})
	f = s.Reduce(f, schedule.SetTerms{Accepted: of.terms})
	return f, nil
}

func parseShipment(s string) (schedule.ShipmentType, error) {
	switch strings.ToLower(s) {
	case "exchange":
		return schedule.ShipmentExchange, nil
	case "split":
		return schedule.ShipmentSplit, nil
	default:
		return schedule.ParseShipmentType(s)
	}
}

func (a *app) documents(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("documents", pflag.ContinueOnError)
	remove := fs.Int("delete", 0, "delete the document with this id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *remove != 0 {
		if err := a.service.DeleteDocument(ctx, *remove); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "document %d deleted\n", *remove)
		return nil
	}

	documents, err := a.service.ListDocuments(ctx)
	if err != nil {
		return err
	}
	return a.printDocuments(documents)
}

func (a *app) invoices(ctx context.Context) error {
	invoices, err := a.service.ListInvoices(ctx)
	if err != nil {
		return err
	}
	return a.printDocuments(invoices)
}

func (a *app) printDocuments(documents []model.Document) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tUPLOADED")
	for _, d := range documents {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", d.ID, d.FileName(), d.UploadedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func (a *app) upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: washportal upload <file>")
	}
	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	name := filepath.Base(args[0])
	if err := a.service.UploadDocument(ctx, name, content); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s uploaded\n", name)
	return nil
}

func (a *app) serve(args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.StringVar(&a.cfg.Handler.ServerAddr, "addr", a.cfg.Handler.ServerAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return handler.Serve(a.cfg.Handler, a.scheduler, a.zaplog)
}
