package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/iurnickita/washportal/internal/clock"
	"github.com/iurnickita/washportal/internal/schedule/config"
)

// Тип доставки
type ShipmentType string

const (
	// обмен чистого белья на грязное в один день
	ShipmentExchange ShipmentType = "pickup_ship_one"
	// вывоз и доставка в разные дни
	ShipmentSplit ShipmentType = "pickup_ship_dif"
)

// Система дней вывоза
type System string

const (
	MonWedFri System = "Mon_Wed_Fri"
	TueThu    System = "Tue_Thu"
	EveryDay  System = "Every_day"
	Own       System = "Own"
)

var (
	ErrUnknownShipmentType = errors.New("unknown shipment type")
	ErrUnknownSystem       = errors.New("unknown system")
	ErrUnknownDay          = errors.New("unknown day of week")
)

func ParseShipmentType(s string) (ShipmentType, error) {
	switch t := ShipmentType(s); t {
	case ShipmentExchange, ShipmentSplit:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownShipmentType, s)
	}
}

func ParseSystem(s string) (System, error) {
	switch sys := System(s); sys {
	case MonWedFri, TueThu, EveryDay, Own:
		return sys, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSystem, s)
	}
}

// DaySet - набор дней недели, бит на time.Weekday
type DaySet uint8

// Рабочие дни - единственные, которые можно отметить в форме
var Workdays = NewDaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)

func NewDaySet(days ...time.Weekday) DaySet {
	var s DaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

func (s DaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s DaySet) With(d time.Weekday) DaySet {
	return s | 1<<uint(d)
}

func (s DaySet) Without(d time.Weekday) DaySet {
	return s &^ (1 << uint(d))
}

func (s DaySet) Empty() bool {
	return s == 0
}

// Days возвращает дни начиная с понедельника
func (s DaySet) Days() []time.Weekday {
	var days []time.Weekday
	for i := 1; i <= 7; i++ {
		d := time.Weekday(i % 7)
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (s DaySet) Names() []string {
	names := []string{}
	for _, d := range s.Days() {
		names = append(names, strings.ToLower(d.String()))
	}
	return names
}

func (s DaySet) String() string {
	return strings.Join(s.Names(), ",")
}

func (s DaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *DaySet) UnmarshalJSON(b []byte) error {
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return err
	}
	set, err := ParseDays(names...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}

// ParseDays принимает "monday", "Mon", "mon,fri"
func ParseDays(names ...string) (DaySet, error) {
	var set DaySet
	for _, name := range names {
		for _, part := range strings.Split(name, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			d, ok := parseDay(part)
			if !ok {
				return 0, fmt.Errorf("%w: %q", ErrUnknownDay, part)
			}
			set = set.With(d)
		}
	}
	return set, nil
}

func parseDay(name string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := strings.ToLower(d.String())
		if name == full || name == full[:3] {
			return d, true
		}
	}
	return 0, false
}

// Pattern - система вывоза заказа: FixedPattern, CustomPattern или OneTimePattern
type Pattern interface {
	Weekdays() DaySet
}

// FixedPattern - одна из готовых систем
type FixedPattern struct {
	System System
}

func (p FixedPattern) Weekdays() DaySet {
	switch p.System {
	case TueThu:
		return NewDaySet(time.Tuesday, time.Thursday)
	case MonWedFri:
		return NewDaySet(time.Monday, time.Wednesday, time.Friday)
	case EveryDay:
		return Workdays
	default:
		return 0
	}
}

// CustomPattern - собственная система, дни выбирает клиент
type CustomPattern struct {
	Days DaySet
}

func (p CustomPattern) Weekdays() DaySet {
	return p.Days
}

// OneTimePattern - разовый заказ
type OneTimePattern struct {
	Pickup   time.Time
	Delivery time.Time
}

func (p OneTimePattern) Weekdays() DaySet {
	return Workdays
}

// Day отбрасывает время суток
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Dates перечисляет подходящие даты в окне horizon дней, начиная с завтра.
// Последовательность ленивая и может перебираться повторно.
func Dates(p Pattern, today time.Time, horizon int) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if p == nil {
			return
		}
		days := p.Weekdays()
		if days.Empty() {
			return
		}
		start := Day(today)
		for i := 1; i <= horizon; i++ {
			d := start.AddDate(0, 0, i)
			if !days.Has(d.Weekday()) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}

func AvailableDates(p Pattern, today time.Time, horizon int) []time.Time {
	return slices.Collect(Dates(p, today, horizon))
}

// Scheduler привязывает движок дат к часам и горизонту из конфигурации
type Scheduler struct {
	clock   clock.Clock
	horizon int
}

func NewScheduler(cfg config.Config, clk clock.Clock) *Scheduler {
	horizon := cfg.HorizonDays
	if horizon <= 0 {
		horizon = config.DefaultHorizonDays
	}
	horizon = min(horizon, config.MaxHorizonDays)
	return &Scheduler{clock: clk, horizon: horizon}
}

func (s *Scheduler) Horizon() int {
	return s.horizon
}

func (s *Scheduler) Today() time.Time {
	return Day(s.clock.Now())
}

func (s *Scheduler) AvailableDates(p Pattern) []time.Time {
	return AvailableDates(p, s.clock.Now(), s.horizon)
}

func containsDay(dates []time.Time, d time.Time) bool {
	return slices.ContainsFunc(dates, func(x time.Time) bool {
		return x.Equal(d)
	})
}
