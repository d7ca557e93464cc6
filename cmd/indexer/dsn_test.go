package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/community-assistant/server/pkg/database"
)

func TestWritableDSN(t *testing.T) {
	tests := []struct {
		in   database.Config
		want string
	}{
		{database.Config{Driver: "sqlite", DSN: "file:data/data.db?mode=ro"}, "file:data/data.db"},
		{database.Config{Driver: "sqlite", DSN: "file:data/data.db?_pragma=busy_timeout(5000)&mode=ro"}, "file:data/data.db?_pragma=busy_timeout%285000%29"},
		{database.Config{Driver: "sqlite", DSN: "data/data.db"}, "data/data.db"},
		{database.Config{Driver: "postgres", DSN: "postgres://u@h/db?sslmode=disable"}, "postgres://u@h/db?sslmode=disable"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, writableDSN(tt.in), tt.in.DSN)
	}
}
