package config

type Config struct {
	Kind  string
	File  string
	DBDsn string
}

const (
	KindMemory   = "memory"
	KindFile     = "file"
	KindPostgres = "postgres"
)
