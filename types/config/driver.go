package config

import "fmt"

type StorageDriver int

const (
	Postgres StorageDriver = iota + 1
	Memory
)

// String converts the StorageDriver enum to a human-readable string.
func (d StorageDriver) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case Memory:
		return "memory"
	}
	return "unknown"
}

func (d *StorageDriver) UnmarshalText(text []byte) error {
	switch string(text) {
	case "postgres", "":
		*d = Postgres
	case "memory":
		*d = Memory
	default:
		return fmt.Errorf("unknown storage driver %q", text)
	}
	return nil
}

type LockDriver int

const (
	NoLock LockDriver = iota
	PostgresLock
	RedisLock
)

func (d LockDriver) String() string {
	switch d {
	case NoLock:
		return "none"
	case PostgresLock:
		return "postgres"
	case RedisLock:
		return "redis"
	}
	return "unknown"
}

func (d *LockDriver) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none":
		*d = NoLock
	case "postgres", "":
		*d = PostgresLock
	case "redis":
		*d = RedisLock
	default:
		return fmt.Errorf("unknown lock driver %q", text)
	}
	return nil
}
