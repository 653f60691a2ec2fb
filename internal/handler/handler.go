package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/washportal/internal/handler/config"
	"github.com/iurnickita/washportal/internal/logger"
	"github.com/iurnickita/washportal/internal/model"
	"github.com/iurnickita/washportal/internal/schedule"
	schedconfig "github.com/iurnickita/washportal/internal/schedule/config"
)

var ErrUnknownAction = errors.New("unknown action")

func Serve(cfg config.Config, scheduler *schedule.Scheduler, zaplog *zap.Logger) error {
	h := newHandler(scheduler, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	zaplog.Info("schedule API listening", zap.String("addr", cfg.ServerAddr))
	return srv.ListenAndServe()
}

type handler struct {
	scheduler *schedule.Scheduler
	zaplog    *zap.Logger
}

func newHandler(scheduler *schedule.Scheduler, zaplog *zap.Logger) *handler {
	return &handler{
		scheduler: scheduler,
		zaplog:    zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/schedule/dates", logger.RequestLogMdlw(h.GetDates, h.zaplog))
	mux.HandleFunc("POST /api/schedule/form", logger.RequestLogMdlw(h.PostForm, h.zaplog))

	return mux
}

// GetDates: ?system=Tue_Thu | ?system=Own&days=mon,fri | ?once=true, опционально &horizon=N
func (h *handler) GetDates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	horizon := h.scheduler.Horizon()
	if v := query.Get("horizon"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > schedconfig.MaxHorizonDays {
			http.Error(w, "bad horizon", http.StatusBadRequest)
			return
		}
		horizon = n
	}

	var pattern schedule.Pattern
	if once, _ := strconv.ParseBool(query.Get("once")); once {
		pattern = schedule.OneTimePattern{}
	} else {
		system, err := schedule.ParseSystem(query.Get("system"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if system == schedule.Own {
			days, err := schedule.ParseDays(query["days"]...)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			pattern = schedule.CustomPattern{Days: days}
		} else {
			pattern = schedule.FixedPattern{System: system}
		}
	}

	dates := schedule.AvailableDates(pattern, h.scheduler.Today(), horizon)
	writeJSON(w, formatDates(dates))
}

type formJSON struct {
	Place     int             `json:"place"`
	Shipment  string          `json:"type_ship"`
	System    string          `json:"system"`
	Days      schedule.DaySet `json:"days"`
	StartDay  string          `json:"date_start_day,omitempty"`
	Pickup    string          `json:"date_pickup,omitempty"`
	Delivery  string          `json:"date_delivery,omitempty"`
	EveryWeek bool            `json:"every_week"`
	Note      string          `json:"rp_customer_note"`
	Terms     bool            `json:"terms"`
}

type actionJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type PostFormJSONRequest struct {
	Form   formJSON    `json:"form"`
	Action *actionJSON `json:"action,omitempty"`
}

type PostFormJSONResponse struct {
	Form     formJSON        `json:"form"`
	Dates    []string        `json:"dates"`
	Disabled schedule.DaySet `json:"disabled"`
	ShowDays bool            `json:"show_days"`
	// причина, по которой форму нельзя отправить
	Error string `json:"error,omitempty"`
}

// PostForm применяет действие к форме и возвращает ее вместе с доступными датами
func (h *handler) PostForm(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req PostFormJSONRequest
	err = json.Unmarshal(buf.Bytes(), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	loc := h.scheduler.Today().Location()
	form, err := formFromJSON(req.Form, loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Action != nil {
		action, err := actionFromJSON(*req.Action, loc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form = h.scheduler.Reduce(form, action)
	}

	resp := PostFormJSONResponse{
		Form:     formToJSON(form),
		Dates:    formatDates(h.scheduler.AvailableDates(form.Pattern())),
		Disabled: form.Disabled(),
		ShowDays: form.ShowDays(),
	}
	if err := h.scheduler.Validate(form); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseJSON)
}

func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(model.DateLayout))
	}
	return out
}

// parseDate читает дату в часовом поясе планировщика
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(model.DateLayout, s, loc)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

func formFromJSON(j formJSON, loc *time.Location) (schedule.Form, error) {
	f := schedule.Form{
		Place:     j.Place,
		Days:      j.Days,
		EveryWeek: j.EveryWeek,
		Note:      j.Note,
		Terms:     j.Terms,
	}

	var err error
	if j.Shipment != "" {
		if f.Shipment, err = schedule.ParseShipmentType(j.Shipment); err != nil {
			return schedule.Form{}, err
		}
	}
	if j.System != "" {
		if f.System, err = schedule.ParseSystem(j.System); err != nil {
			return schedule.Form{}, err
		}
	}
	if err = schedule.CheckDays(f.Shipment, f.Days); err != nil {
		return schedule.Form{}, err
	}
	if f.StartDay, err = parseDate(j.StartDay, loc); err != nil {
		return schedule.Form{}, err
	}
	if f.Pickup, err = parseDate(j.Pickup, loc); err != nil {
		return schedule.Form{}, err
	}
	if f.Delivery, err = parseDate(j.Delivery, loc); err != nil {
		return schedule.Form{}, err
	}
	return f, nil
}

func formToJSON(f schedule.Form) formJSON {
	return formJSON{
		Place:     f.Place,
		Shipment:  string(f.Shipment),
		System:    string(f.System),
		Days:      f.Days,
		StartDay:  formatDate(f.StartDay),
		Pickup:    formatDate(f.Pickup),
		Delivery:  formatDate(f.Delivery),
		EveryWeek: f.EveryWeek,
		Note:      f.Note,
		Terms:     f.Terms,
	}
}

func actionFromJSON(a actionJSON, loc *time.Location) (schedule.Action, error) {
	switch a.Type {
	case "place":
		var id int
		err := json.Unmarshal(a.Value, &id)
		return schedule.SetPlace{ID: id}, err

	case "type_ship":
		var s string
		if err := json.Unmarshal(a.Value, &s); err != nil {
			return nil, err
		}
		t, err := schedule.ParseShipmentType(s)
		return schedule.SetShipmentType{Type: t}, err

	case "system":
		var s string
		if err := json.Unmarshal(a.Value, &s); err != nil {
			return nil, err
		}
		sys, err := schedule.ParseSystem(s)
		return schedule.SetSystem{System: sys}, err

	case "toggle_day":
		var s string
		if err := json.Unmarshal(a.Value, &s); err != nil {
			return nil, err
		}
		days, err := schedule.ParseDays(s)
		if err != nil {
			return nil, err
		}
		if len(days.Days()) != 1 {
			return nil, fmt.Errorf("%w: toggle_day takes one day", ErrUnknownAction)
		}
		return schedule.ToggleDay{Day: days.Days()[0]}, nil

	case "start_day", "pickup", "delivery":
		var s string
		if err := json.Unmarshal(a.Value, &s); err != nil {
			return nil, err
		}
		d, err := parseDate(s, loc)
		if err != nil {
			return nil, err
		}
		switch a.Type {
		case "start_day":
			return schedule.SetStartDay{Date: d}, nil
		case "pickup":
			return schedule.SetPickup{Date: d}, nil
		default:
			return schedule.SetDelivery{Date: d}, nil
		}

	case "every_week":
		var on bool
		err := json.Unmarshal(a.Value, &on)
		return schedule.SetEveryWeek{On: on}, err

	case "note":
		var s string
		err := json.Unmarshal(a.Value, &s)
		return schedule.SetNote{Text: s}, err

	case "terms":
		var on bool
		err := json.Unmarshal(a.Value, &on)
		return schedule.SetTerms{Accepted: on}, err
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
}
