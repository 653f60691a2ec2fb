package schedule

import (
	"errors"
	"time"
)

var (
	ErrNoPlace                = errors.New("place is not selected")
	ErrNoShipmentType         = errors.New("shipment type is not selected")
	ErrNoSystem               = errors.New("either system or at least one day of the week must be selected")
	ErrEmptySchedule          = errors.New("no dates available for the selected system")
	ErrStartDayUnavailable    = errors.New("start day is not among the available dates")
	ErrNoPickupDate           = errors.New("pick-up date is not set")
	ErrPickupUnavailable      = errors.New("pick-up date is not among the available dates")
	ErrDeliveryNotAfterPickup = errors.New("delivery date must be later than pick-up date")
	ErrTermsNotAccepted       = errors.New("terms of use are not accepted")
	ErrDayNotSelectable       = errors.New("only Monday to Friday can be selected")
	ErrAdjacentDays           = errors.New("adjacent days cannot both be selected for split shipment")
)

// Form - состояние формы заказа. Меняется только через Scheduler.Reduce.
type Form struct {
	Place    int
	Shipment ShipmentType
	System   System
	Days     DaySet
	// первая дата повторяющегося заказа (date_start_day)
	StartDay time.Time
	// даты разового заказа
	Pickup    time.Time
	Delivery  time.Time
	EveryWeek bool
	Note      string
	Terms     bool
}

func (f Form) Pattern() Pattern {
	switch {
	case !f.EveryWeek:
		return OneTimePattern{Pickup: f.Pickup, Delivery: f.Delivery}
	case f.System == Own:
		return CustomPattern{Days: f.Days}
	default:
		return FixedPattern{System: f.System}
	}
}

// ShowDays - видны ли чекбоксы дней недели
func (f Form) ShowDays() bool {
	return f.System == Own
}

// Disabled - дни, которые нельзя отметить: при раздельном вывозе
// соседние с выбранными рабочие дни блокируются
func (f Form) Disabled() DaySet {
	if f.Shipment != ShipmentSplit {
		return 0
	}
	var disabled DaySet
	for _, d := range f.Days.Days() {
		for _, n := range []time.Weekday{d - 1, d + 1} {
			if Workdays.Has(n) && !f.Days.Has(n) {
				disabled = disabled.With(n)
			}
		}
	}
	return disabled
}

// Действия над формой

type Action interface {
	action()
}

type SetPlace struct{ ID int }
type SetShipmentType struct{ Type ShipmentType }
type SetSystem struct{ System System }
type ToggleDay struct{ Day time.Weekday }
type SetStartDay struct{ Date time.Time }
type SetPickup struct{ Date time.Time }
type SetDelivery struct{ Date time.Time }
type SetEveryWeek struct{ On bool }
type SetNote struct{ Text string }
type SetTerms struct{ Accepted bool }

func (SetPlace) action()        {}
func (SetShipmentType) action() {}
func (SetSystem) action()       {}
func (ToggleDay) action()       {}
func (SetStartDay) action()     {}
func (SetPickup) action()       {}
func (SetDelivery) action()     {}
func (SetEveryWeek) action()    {}
func (SetNote) action()         {}
func (SetTerms) action()        {}

// Reduce применяет действие и поддерживает согласованность зависимых полей.
// Недопустимые действия возвращают форму без изменений.
func (s *Scheduler) Reduce(f Form, a Action) Form {
	switch a := a.(type) {
	case SetPlace:
		f.Place = a.ID

	case SetShipmentType:
		f.Shipment = a.Type
		f.Days = 0
		switch a.Type {
		case ShipmentSplit:
			f.System = Own
		case ShipmentExchange:
			if f.System == Own {
				f.System = ""
			}
		}
		f = s.syncStartDay(f)

	case SetSystem:
		if f.Shipment == ShipmentSplit && a.System != Own {
			return f
		}
		if f.Shipment == ShipmentExchange && a.System == Own {
			return f
		}
		if a.System != Own {
			f.Days = 0
		}
		f.System = a.System
		f = s.syncStartDay(f)

	case ToggleDay:
		if f.System != Own || !Workdays.Has(a.Day) {
			return f
		}
		if f.Days.Has(a.Day) {
			f.Days = f.Days.Without(a.Day)
		} else {
			if f.Disabled().Has(a.Day) {
				return f
			}
			f.Days = f.Days.With(a.Day)
		}
		f = s.syncStartDay(f)

	case SetStartDay:
		d := s.dayOf(a.Date)
		if !containsDay(s.AvailableDates(f.Pattern()), d) {
			return f
		}
		f.StartDay = d

	case SetPickup:
		f.Pickup = s.dayOf(a.Date)
		if f.Delivery.IsZero() || !f.Delivery.After(f.Pickup) {
			f.Delivery = f.Pickup.AddDate(0, 0, 1)
		}

	case SetDelivery:
		d := s.dayOf(a.Date)
		if !f.Pickup.IsZero() && !d.After(f.Pickup) {
			d = f.Pickup.AddDate(0, 0, 1)
		}
		f.Delivery = d

	case SetEveryWeek:
		f.EveryWeek = a.On
		f = s.syncStartDay(f)

	case SetNote:
		f.Note = a.Text

	case SetTerms:
		f.Terms = a.Accepted
	}
	return f
}

// syncStartDay оставляет выбранную дату, если она еще доступна, иначе берет первую
func (s *Scheduler) syncStartDay(f Form) Form {
	dates := s.AvailableDates(f.Pattern())
	if !f.StartDay.IsZero() && containsDay(dates, f.StartDay) {
		return f
	}
	if len(dates) == 0 {
		f.StartDay = time.Time{}
		return f
	}
	f.StartDay = dates[0]
	return f
}

// Validate проверяет форму перед отправкой. Пустое расписание - ErrEmptySchedule.
func (s *Scheduler) Validate(f Form) error {
	if f.Place == 0 {
		return ErrNoPlace
	}
	if f.Shipment == "" {
		return ErrNoShipmentType
	}
	if err := CheckDays(f.Shipment, f.Days); err != nil {
		return err
	}
	// бэкенд принимает заказ только с системой или хотя бы одним днем
	if f.System == "" {
		return ErrNoSystem
	}

	dates := s.AvailableDates(f.Pattern())
	if f.EveryWeek {
		if len(dates) == 0 {
			return ErrEmptySchedule
		}
		if !containsDay(dates, s.dayOf(f.StartDay)) {
			return ErrStartDayUnavailable
		}
	} else {
		if f.System == Own && f.Days.Empty() {
			return ErrNoSystem
		}
		if f.Pickup.IsZero() {
			return ErrNoPickupDate
		}
		if !containsDay(dates, s.dayOf(f.Pickup)) {
			return ErrPickupUnavailable
		}
		if !f.Delivery.After(f.Pickup) {
			return ErrDeliveryNotAfterPickup
		}
	}

	if !f.Terms {
		return ErrTermsNotAccepted
	}
	return nil
}

// CheckDays проверяет набор дней, пришедший в обход Reduce
func CheckDays(shipment ShipmentType, days DaySet) error {
	if days&^Workdays != 0 {
		return ErrDayNotSelectable
	}
	if shipment == ShipmentSplit {
		for _, d := range days.Days() {
			if days.Has(d + 1) {
				return ErrAdjacentDays
			}
		}
	}
	return nil
}

// dayOf переносит календарную дату в часовой пояс часов планировщика
func (s *Scheduler) dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.clock.Now().Location())
}
