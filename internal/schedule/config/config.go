package config

type Config struct {
	HorizonDays int
}

const (
	DefaultHorizonDays = 30
	// окно дальше года не строим
	MaxHorizonDays = 366
)
