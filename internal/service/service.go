package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/iurnickita/washportal/internal/clock"
	"github.com/iurnickita/washportal/internal/credstore"
	"github.com/iurnickita/washportal/internal/gateway"
	"github.com/iurnickita/washportal/internal/model"
	"github.com/iurnickita/washportal/internal/schedule"
	"github.com/iurnickita/washportal/internal/token"
)

type Service interface {
	Login(ctx context.Context, email string, password string) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) (Status, error)
	IsAdmin(ctx context.Context) (bool, error)
	ListPlaces(ctx context.Context) ([]model.Place, error)
	CreatePlace(ctx context.Context, place model.Place) (model.Place, error)
	DeletePlace(ctx context.Context, id int) error
	ListOrders(ctx context.Context) ([]model.Order, error)
	CurrentOrders(ctx context.Context) ([]model.Order, error)
	CreateOrder(ctx context.Context, form schedule.Form) (model.Order, error)
	CancelOrder(ctx context.Context, id int) error
	ListDocuments(ctx context.Context) ([]model.Document, error)
	ListInvoices(ctx context.Context) ([]model.Document, error)
	UploadDocument(ctx context.Context, name string, content []byte) error
	DeleteDocument(ctx context.Context, id int) error
}

// Gateway - то, что сервису нужно от шлюза API
type Gateway interface {
	Send(ctx context.Context, req gateway.Request) (*gateway.Response, error)
	Login(ctx context.Context, email string, password string) (model.Credentials, error)
	Logout(ctx context.Context) error
}

var (
	ErrInsufficientData   = errors.New("insufficient data")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrUnexpectedStatus   = errors.New("unexpected response status")
)

// Пути API относительно базового URL
const (
	pathIsAdmin        = "/admin/adminpanel/is-admin/"
	pathPlaces         = "/place/list/"
	pathPlaceCreate    = "/place/create/"
	pathPlaceDelete    = "/place/delete/%d/"
	pathOrders         = "/order/list/"
	pathOrderCreate    = "/order/create/"
	pathOrderUpdate    = "/order/update/%d/"
	pathDocuments      = "/customer/documents/"
	pathInvoices       = "/customer/documents/for-customer/"
	pathDocumentUpload = "/customer/documents/upload/"
	pathDocumentDelete = "/customer/documents/%d/delete/"
)

// Status - состояние сессии по сохраненным токенам
type Status struct {
	LoggedIn         bool
	User             string
	AccessExpiresAt  time.Time
	AccessExpired    bool
	RefreshExpiresAt time.Time
	RefreshExpired   bool
}

type service struct {
	gateway   Gateway
	store     credstore.Store
	scheduler *schedule.Scheduler
	clock     clock.Clock
	zaplog    *zap.Logger
}

func NewService(gw Gateway, store credstore.Store, scheduler *schedule.Scheduler, clk clock.Clock, zaplog *zap.Logger) Service {
	return &service{
		gateway:   gw,
		store:     store,
		scheduler: scheduler,
		clock:     clk,
		zaplog:    zaplog,
	}
}

func (service *service) Login(ctx context.Context, email string, password string) error {
	if email == "" || password == "" {
		return ErrInsufficientData
	}

	_, err := service.gateway.Login(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrLoginRejected):
			return ErrInvalidCredentials
		default:
			return err
		}
	}
	return nil
}

func (service *service) Logout(ctx context.Context) error {
	return service.gateway.Logout(ctx)
}

func (service *service) Status(ctx context.Context) (Status, error) {
	creds, err := credstore.LoadCredentials(ctx, service.store)
	if err != nil {
		return Status{}, err
	}
	if creds.Access == "" && creds.Refresh == "" {
		return Status{}, nil
	}

	now := service.clock.Now()
	status := Status{LoggedIn: true}
	if claims, err := token.Inspect(creds.Access); err == nil {
		status.User = claims.User()
		status.AccessExpiresAt, _ = claims.Expiry()
		status.AccessExpired = claims.Expired(now)
	} else {
		status.AccessExpired = true
	}
	if claims, err := token.Inspect(creds.Refresh); err == nil {
		if status.User == "" {
			status.User = claims.User()
		}
		status.RefreshExpiresAt, _ = claims.Expiry()
		status.RefreshExpired = claims.Expired(now)
	} else {
		status.RefreshExpired = true
	}
	// сессия жива, пока можно обновить access
	status.LoggedIn = !status.AccessExpired || !status.RefreshExpired
	return status, nil
}

func (service *service) IsAdmin(ctx context.Context) (bool, error) {
	var answer struct {
		IsAdmin bool `json:"is_admin"`
	}
	err := service.getJSON(ctx, pathIsAdmin, &answer)
	return answer.IsAdmin, err
}

func (service *service) ListPlaces(ctx context.Context) ([]model.Place, error) {
	var places []model.Place
	err := service.getJSON(ctx, pathPlaces, &places)
	return places, err
}

func (service *service) CreatePlace(ctx context.Context, place model.Place) (model.Place, error) {
	// адрес обязателен для бэкенда
	if place.Name == "" || place.City == "" || place.Street == "" || place.Number == "" || place.Zip == 0 {
		return model.Place{}, ErrInsufficientData
	}
	place.ID = 0

	var created model.Place
	if err := service.sendJSON(ctx, http.MethodPost, pathPlaceCreate, place, &created); err != nil {
		return model.Place{}, err
	}
	return created, nil
}

func (service *service) DeletePlace(ctx context.Context, id int) error {
	if id == 0 {
		return ErrInsufficientData
	}
	return service.sendJSON(ctx, http.MethodDelete, fmt.Sprintf(pathPlaceDelete, id), nil, nil)
}

func (service *service) ListOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := service.getJSON(ctx, pathOrders, &orders)
	return orders, err
}

// CurrentOrders - повторяющиеся заказы, которые еще не завершены и не отменены
func (service *service) CurrentOrders(ctx context.Context) ([]model.Order, error) {
	orders, err := service.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	current := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if o.Current() {
			current = append(current, o)
		}
	}
	return current, nil
}

func (service *service) CancelOrder(ctx context.Context, id int) error {
	if id == 0 {
		return ErrInsufficientData
	}
	update := struct {
		Canceled bool `json:"canceled"`
	}{Canceled: true}
	return service.sendJSON(ctx, http.MethodPut, fmt.Sprintf(pathOrderUpdate, id), update, nil)
}

func (service *service) CreateOrder(ctx context.Context, form schedule.Form) (model.Order, error) {
	// пустое расписание или неполная форма - заказ не отправляется
	if err := service.scheduler.Validate(form); err != nil {
		return model.Order{}, err
	}

	// бэкенд отвечает {"message": "...", "order": {...}}
	var answer struct {
		Message string      `json:"message"`
		Order   model.Order `json:"order"`
	}
	err := service.sendJSON(ctx, http.MethodPost, pathOrderCreate, orderFromForm(form), &answer)
	if err != nil {
		return model.Order{}, err
	}
	service.zaplog.Debug("order created",
		zap.Int("id", answer.Order.ID),
		zap.String("message", answer.Message),
	)
	return answer.Order, nil
}

func (service *service) ListDocuments(ctx context.Context) ([]model.Document, error) {
	var documents []model.Document
	err := service.getJSON(ctx, pathDocuments, &documents)
	return documents, err
}

// ListInvoices - документы, выставленные клиенту администрацией
func (service *service) ListInvoices(ctx context.Context) ([]model.Document, error) {
	var invoices []model.Document
	err := service.getJSON(ctx, pathInvoices, &invoices)
	return invoices, err
}

func (service *service) UploadDocument(ctx context.Context, name string, content []byte) error {
	if name == "" || len(content) == 0 {
		return ErrInsufficientData
	}

	resp, err := service.gateway.Send(ctx, gateway.Request{
		Method: http.MethodPost,
		URL:    pathDocumentUpload,
		Multipart: &gateway.Multipart{
			Files: []gateway.File{{Param: "file", Name: name, Content: content}},
		},
	})
	if err != nil {
		return err
	}
	return checkStatus(resp)
}

func (service *service) DeleteDocument(ctx context.Context, id int) error {
	if id == 0 {
		return ErrInsufficientData
	}

	resp, err := service.gateway.Send(ctx, gateway.Request{
		Method: http.MethodDelete,
		URL:    fmt.Sprintf(pathDocumentDelete, id),
	})
	if err != nil {
		return err
	}
	return checkStatus(resp)
}

func (service *service) getJSON(ctx context.Context, path string, v any) error {
	return service.sendJSON(ctx, http.MethodGet, path, nil, v)
}

// sendJSON отправляет in (если есть) и разбирает ответ в out (если нужен)
func (service *service) sendJSON(ctx context.Context, method string, path string, in any, out any) error {
	req := gateway.Request{Method: method, URL: path}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return err
		}
		req.Body = body
	}

	resp, err := service.gateway.Send(ctx, req)
	if err != nil {
		return err
	}
	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(resp.Body) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Body, out)
}

// orderFromForm собирает тело запроса создания заказа
func orderFromForm(f schedule.Form) model.Order {
	order := model.Order{
		Place:        f.Place,
		TypeShip:     string(f.Shipment),
		Monday:       f.Days.Has(time.Monday),
		Tuesday:      f.Days.Has(time.Tuesday),
		Wednesday:    f.Days.Has(time.Wednesday),
		Thursday:     f.Days.Has(time.Thursday),
		Friday:       f.Days.Has(time.Friday),
		EveryWeek:    f.EveryWeek,
		CustomerNote: f.Note,
		Terms:        f.Terms,
	}
	// для собственной системы бэкенд ждет null и отмеченные дни
	if f.System != schedule.Own && f.System != "" {
		system := string(f.System)
		order.System = &system
	}

	if f.EveryWeek {
		order.DateStartDay = f.StartDay.Format(model.DateLayout)
		order.DatePickup = order.DateStartDay
		order.DateDelivery = order.DateStartDay
	} else {
		order.DatePickup = f.Pickup.Format(model.DateLayout)
		order.DateDelivery = f.Delivery.Format(model.DateLayout)
	}
	return order
}
