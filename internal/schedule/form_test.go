package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/washportal/internal/clock"
	"github.com/iurnickita/washportal/internal/schedule/config"
)

func newTestScheduler() *Scheduler {
	return NewScheduler(config.Config{HorizonDays: 30}, clock.Fake(monday))
}

func reduce(s *Scheduler, f Form, actions ...Action) Form {
	for _, a := range actions {
		f = s.Reduce(f, a)
	}
	return f
}

func TestReduceSystemToOwnWithoutDays(t *testing.T) {
	s := newTestScheduler()
	f := reduce(s, Form{}, SetEveryWeek{On: true}, SetSystem{System: MonWedFri})
	require.Equal(t, date(2025, 6, 11), f.StartDay)

	f = s.Reduce(f, SetSystem{System: Own})
	require.True(t, f.ShowDays())
	require.Empty(t, s.AvailableDates(f.Pattern()))
	// без дат выбирать нечего
	require.True(t, f.StartDay.IsZero())
}

func TestReduceSystemAwayFromOwnClearsDays(t *testing.T) {
	s := newTestScheduler()
	f := reduce(s, Form{EveryWeek: true},
		SetSystem{System: Own},
		ToggleDay{Day: time.Monday},
		ToggleDay{Day: time.Thursday},
	)
	require.Equal(t, NewDaySet(time.Monday, time.Thursday), f.Days)

	f = s.Reduce(f, SetSystem{System: TueThu})
	require.True(t, f.Days.Empty())
	require.False(t, f.ShowDays())
}

func TestReduceToggleRequiresOwn(t *testing.T) {
	s := newTestScheduler()
	f := reduce(s, Form{EveryWeek: true}, SetSystem{System: TueThu}, ToggleDay{Day: time.Monday})
	require.True(t, f.Days.Empty())

	// выходные не выбираются
	f = reduce(s, f, SetSystem{System: Own}, ToggleDay{Day: time.Saturday})
	require.True(t, f.Days.Empty())
}

func TestReduceSplitAdjacency(t *testing.T) {
	s := newTestScheduler()
	f := reduce(s, Form{EveryWeek: true}, SetShipmentType{Type: ShipmentSplit})
	require.Equal(t, Own, f.System)
	require.True(t, f.ShowDays())

	f = s.Reduce(f, ToggleDay{Day: time.Monday})
	require.Equal(t, NewDaySet(time.Tuesday), f.Disabled())
	require.False(t, f.Disabled().Has(time.Sunday))
	require.False(t, f.Disabled().Has(time.Wednesday))

	// вторник заблокирован и остается снятым
	f = s.Reduce(f, ToggleDay{Day: time.Tuesday})
	require.Equal(t, NewDaySet(time.Monday), f.Days)

	f = s.Reduce(f, ToggleDay{Day: time.Wednesday})
	require.Equal(t, NewDaySet(time.Monday, time.Wednesday), f.Days)
	require.Equal(t, NewDaySet(time.Tuesday, time.Thursday), f.Disabled())

	f = s.Reduce(f, ToggleDay{Day: time.Friday})
	require.Equal(t, NewDaySet(time.Monday, time.Wednesday, time.Friday), f.Days)
	require.Equal(t, NewDaySet(time.Tuesday, time.Thursday), f.Disabled())

	// снятие понедельника вторник не освобождает: рядом среда
	f = s.Reduce(f, ToggleDay{Day: time.Monday})
	require.True(t, f.Disabled().Has(time.Tuesday))
	f = s.Reduce(f, ToggleDay{Day: time.Wednesday})
	require.Equal(t, NewDaySet(time.Thursday), f.Disabled())
}

func TestReduceWeekBoundaries(t *testing.T) {
	s := newTestScheduler()
	f := reduce(s, Form{EveryWeek: true}, SetShipmentType{Type: ShipmentSplit}, ToggleDay{Day: time.Friday})
	// пятница и понедельник разделены выходными
	require.Equal(t, NewDaySet(time.Thursday), f.Disabled())

	f = s.Reduce(f, ToggleDay{Day: time.Monday})
	require.Equal(t, NewDaySet(time.Monday, time.Friday), f.Days)
}

func TestReduceAdjacencyOnlyForSplit(t *testing.T) {
	s := newTestScheduler()
	f := reduce(s, Form{EveryWeek: true},
		SetSystem{System: Own},
		ToggleDay{Day: time.Monday},
		ToggleDay{Day: time.Tuesday},
	)
	require.Equal(t, NewDaySet(time.Monday, time.Tuesday), f.Days)
	require.True(t, f.Disabled().Empty())
}

func TestReduceShipmentType(t *testing.T) {
	s := newTestScheduler()
	f := reduce(s, Form{EveryWeek: true},
		SetShipmentType{Type: ShipmentSplit},
		ToggleDay{Day: time.Monday},
	)

	// раздельный вывоз: система только Own
	f = s.Reduce(f, SetSystem{System: TueThu})
	require.Equal(t, Own, f.System)

	// обмен: дни сброшены, Own недоступен
	f = s.Reduce(f, SetShipmentType{Type: ShipmentExchange})
	require.Equal(t, System(""), f.System)
	require.True(t, f.Days.Empty())
	require.False(t, f.ShowDays())
	f = s.Reduce(f, SetSystem{System: Own})
	require.Equal(t, System(""), f.System)

	f = s.Reduce(f, SetSystem{System: TueThu})
	require.Equal(t, TueThu, f.System)

	// смена типа сбрасывает выбор дней, но не фиксированную систему
	f = s.Reduce(f, SetShipmentType{Type: ShipmentExchange})
	require.Equal(t, TueThu, f.System)
}

func TestReduceStartDay(t *testing.T) {
	s := newTestScheduler()
	f := reduce(s, Form{EveryWeek: true}, SetSystem{System: TueThu})
	require.Equal(t, date(2025, 6, 10), f.StartDay)

	f = s.Reduce(f, SetStartDay{Date: time.Date(2025, 6, 12, 18, 0, 0, 0, time.UTC)})
	require.Equal(t, date(2025, 6, 12), f.StartDay)

	// дата вне расписания игнорируется
	f = s.Reduce(f, SetStartDay{Date: date(2025, 6, 11)})
	require.Equal(t, date(2025, 6, 12), f.StartDay)

	// выбранная дата сохраняется, пока она есть в новом расписании
	f = s.Reduce(f, SetShipmentType{Type: ShipmentExchange})
	require.Equal(t, date(2025, 6, 12), f.StartDay)
	f = s.Reduce(f, SetSystem{System: EveryDay})
	require.Equal(t, date(2025, 6, 12), f.StartDay)

	// в Пн-Ср-Пт четверга нет
	f = s.Reduce(f, SetSystem{System: MonWedFri})
	require.Equal(t, date(2025, 6, 11), f.StartDay)
}

func TestReduceOneTimeDates(t *testing.T) {
	s := newTestScheduler()
	f := Form{Delivery: date(2025, 6, 10)}

	f = s.Reduce(f, SetPickup{Date: date(2025, 6, 10)})
	require.Equal(t, date(2025, 6, 10), f.Pickup)
	require.Equal(t, date(2025, 6, 11), f.Delivery)

	// корректная доставка не меняется
	f = s.Reduce(f, SetDelivery{Date: date(2025, 6, 13)})
	f = s.Reduce(f, SetPickup{Date: date(2025, 6, 12)})
	require.Equal(t, date(2025, 6, 13), f.Delivery)

	// доставка раньше вывоза сдвигается
	f = s.Reduce(f, SetDelivery{Date: date(2025, 6, 11)})
	require.Equal(t, date(2025, 6, 13), f.Delivery)

	f = s.Reduce(Form{}, SetPickup{Date: date(2025, 6, 16)})
	require.Equal(t, date(2025, 6, 17), f.Delivery)
}

func TestReduceSimpleFields(t *testing.T) {
	s := newTestScheduler()
	f := reduce(s, Form{}, SetPlace{ID: 7}, SetNote{Text: "gate code 1234"}, SetTerms{Accepted: true})
	require.Equal(t, 7, f.Place)
	require.Equal(t, "gate code 1234", f.Note)
	require.True(t, f.Terms)
}

func TestValidate(t *testing.T) {
	s := newTestScheduler()
	recurring := reduce(s, Form{},
		SetPlace{ID: 1},
		SetEveryWeek{On: true},
		SetShipmentType{Type: ShipmentExchange},
		SetSystem{System: TueThu},
		SetTerms{Accepted: true},
	)
	require.NoError(t, s.Validate(recurring))

	oneTime := reduce(s, Form{},
		SetPlace{ID: 1},
		SetShipmentType{Type: ShipmentExchange},
		SetSystem{System: EveryDay},
		SetPickup{Date: date(2025, 6, 10)},
		SetTerms{Accepted: true},
	)
	require.NoError(t, s.Validate(oneTime))

	tests := []struct {
		name string
		form Form
		err  error
	}{
		{"no place", reduce(s, recurring, SetPlace{}), ErrNoPlace},
		{"no shipment", func() Form { f := recurring; f.Shipment = ""; return f }(), ErrNoShipmentType},
		{"no system", func() Form { f := recurring; f.System = ""; return f }(), ErrNoSystem},
		{"own without days", reduce(s, recurring, SetShipmentType{Type: ShipmentSplit}), ErrEmptySchedule},
		{"start day outside", func() Form { f := recurring; f.StartDay = date(2025, 6, 11); return f }(), ErrStartDayUnavailable},
		{"no terms", reduce(s, recurring, SetTerms{}), ErrTermsNotAccepted},
		{"no pickup", func() Form { f := oneTime; f.Pickup = time.Time{}; return f }(), ErrNoPickupDate},
		{"pickup on weekend", func() Form { f := oneTime; f.Pickup = date(2025, 6, 14); f.Delivery = date(2025, 6, 16); return f }(), ErrPickupUnavailable},
		{"pickup in the past", func() Form { f := oneTime; f.Pickup = date(2025, 6, 9); return f }(), ErrPickupUnavailable},
		{"delivery same day", func() Form { f := oneTime; f.Delivery = f.Pickup; return f }(), ErrDeliveryNotAfterPickup},
		{"one time without system", func() Form { f := oneTime; f.System = ""; return f }(), ErrNoSystem},
		{"one time own without days", func() Form {
			f := oneTime
			f.Shipment, f.System = ShipmentSplit, Own
			return f
		}(), ErrNoSystem},
		{"weekend day", func() Form {
			f := recurring
			f.System, f.Days = Own, NewDaySet(time.Monday, time.Saturday)
			return f
		}(), ErrDayNotSelectable},
		{"adjacent days for split", func() Form {
			f := recurring
			f.Shipment, f.System, f.Days = ShipmentSplit, Own, NewDaySet(time.Monday, time.Tuesday)
			f.StartDay = date(2025, 6, 10)
			return f
		}(), ErrAdjacentDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, s.Validate(tt.form), tt.err)
		})
	}
}

func TestValidateOneTimeOwnDays(t *testing.T) {
	s := newTestScheduler()
	f := reduce(s, Form{},
		SetPlace{ID: 1},
		SetShipmentType{Type: ShipmentSplit},
		ToggleDay{Day: time.Wednesday},
		SetPickup{Date: date(2025, 6, 10)},
		SetTerms{Accepted: true},
	)
	require.NoError(t, s.Validate(f))
}

func TestCheckDays(t *testing.T) {
	require.NoError(t, CheckDays(ShipmentSplit, NewDaySet(time.Monday, time.Wednesday, time.Friday)))
	// пятница и понедельник не соседи
	require.NoError(t, CheckDays(ShipmentSplit, NewDaySet(time.Monday, time.Friday)))
	require.NoError(t, CheckDays(ShipmentExchange, NewDaySet(time.Monday, time.Tuesday)))
	require.ErrorIs(t, CheckDays(ShipmentSplit, NewDaySet(time.Thursday, time.Friday)), ErrAdjacentDays)
	require.ErrorIs(t, CheckDays(ShipmentExchange, NewDaySet(time.Sunday)), ErrDayNotSelectable)
}
