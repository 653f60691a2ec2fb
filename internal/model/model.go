package model

import (
	"net/url"
	"path"
	"time"
)

// Токены доступа

type Credentials struct {
	Access  string
	Refresh string
}

// Ключи хранилища токенов
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// Места (точки вывоза)

type Place struct {
	ID     int    `json:"id,omitempty"`
	Name   string `json:"place_name"`
	City   string `json:"rp_city,omitempty"`
	Street string `json:"rp_street,omitempty"`
	Number string `json:"rp_number,omitempty"`
	Zip    int    `json:"rp_zip,omitempty"`
	Person string `json:"rp_person,omitempty"`
	Phone  string `json:"rp_phone,omitempty"`
	Email  string `json:"rp_email,omitempty"`
	Active bool   `json:"active,omitempty"`
}

// Заказы

type Order struct {
	ID           int     `json:"id,omitempty"`
	Place        int     `json:"place"`
	PlaceName    string  `json:"place_name,omitempty"`
	TypeShip     string  `json:"type_ship"`
	System       *string `json:"system"`
	Monday       bool    `json:"monday"`
	Tuesday      bool    `json:"tuesday"`
	Wednesday    bool    `json:"wednesday"`
	Thursday     bool    `json:"thursday"`
	Friday       bool    `json:"friday"`
	DatePickup   string  `json:"date_pickup"`
	DateDelivery string  `json:"date_delivery"`
	DateStartDay string  `json:"date_start_day,omitempty"`
	EveryWeek    bool    `json:"every_week"`
	CustomerNote string  `json:"rp_customer_note"`
	Terms        bool    `json:"terms"`
	Active       bool    `json:"active,omitempty"`
	EndOrder     bool    `json:"end_order,omitempty"`
	Canceled     bool    `json:"canceled,omitempty"`
	// только чтение: при создании не отправляется
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Current - действующий повторяющийся заказ
func (o Order) Current() bool {
	return o.EveryWeek && !o.EndOrder && !o.Canceled
}

// Документы клиента

type Document struct {
	ID         int       `json:"id"`
	Customer   int       `json:"customer,omitempty"`
	File       string    `json:"file"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// FileName - имя файла из пути или URL документа
func (d Document) FileName() string {
	p := d.File
	if u, err := url.Parse(d.File); err == nil {
		p = u.Path
	}
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Формат дат API
const DateLayout = "2006-01-02"
