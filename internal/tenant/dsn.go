package tenant

import (
	"net/url"
	"strconv"
)

// Coordinates are the connection coordinates of one tenant database, as
// stored on the registry Company row.
type Coordinates struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// BuildDSN turns tenant coordinates into a Postgres connection URL.
// The user and password are percent-encoded so credentials containing
// reserved characters survive embedding. Pure string assembly, no I/O.
func BuildDSN(c Coordinates) string {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme: "postgresql",
		Host:   host + ":" + strconv.Itoa(port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	if c.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", c.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
