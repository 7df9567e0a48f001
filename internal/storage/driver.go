package storage

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Driver names the relational backend and doubles as the migrations
// directory name.
type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverMySQL  Driver = "mysql"
)

// IsValid returns true if the driver is supported.
func (d Driver) IsValid() bool {
	switch d {
	case DriverSQLite, DriverMySQL:
		return true
	default:
		return false
	}
}

func (d Driver) String() string {
	return string(d)
}

// sqlName is the database/sql driver registration name.
func (d Driver) sqlName() string {
	return string(d)
}

// migrationDSN enables multi-statement execution where the driver needs it.
func (d Driver) migrationDSN(dsn string) string {
	if d != DriverMySQL {
		return dsn
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return dsn
	}
	cfg.MultiStatements = true
	return cfg.FormatDSN()
}

// MySQLOptions describes a MySQL server the way the deployment environment
// exposes it.
type MySQLOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// MySQLDSN builds a go-sql-driver DSN. Timestamps are parsed into time.Time.
func MySQLDSN(o MySQLOptions) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.DBName = o.Database
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// isUniqueViolation recognizes unique-constraint failures from either driver.
func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func unsupportedDriver(d Driver) error {
	return fmt.Errorf("unsupported database driver %q (want %s or %s)", d, DriverSQLite, DriverMySQL)
}
