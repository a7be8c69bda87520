package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/room-allocation-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "alloc", Password: "secret", Name: "rooms", SSLMode: "require"})
	assert.Equal(t, "host=db port=5433 user=alloc password=secret dbname=rooms sslmode=require", dsn)
}
