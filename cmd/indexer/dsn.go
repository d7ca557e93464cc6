package main

import (
	"net/url"
	"strings"

	"github.com/community-assistant/server/pkg/database"
)

// writableDSN drops the read-only mode the server opens SQLite files with.
func writableDSN(c database.Config) string {
	if c.Driver != database.DriverSQLite {
		return c.DSN
	}
	path, query, ok := strings.Cut(c.DSN, "?")
	if !ok {
		return c.DSN
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return c.DSN
	}
	values.Del("mode")
	if len(values) == 0 {
		return path
	}
	return path + "?" + values.Encode()
}
