package participant

import (
	"sort"
	"strconv"

	"github.com/jackc/pgconn"
	"github.com/pkg/errors"
)

// Option is one keyword/value pair of a parsed connection string.
type Option struct {
	Keyword string
	Value   string
}

// ParseConnString validates connString and returns its non-empty options.
func ParseConnString(connString string) ([]Option, error) {
	config, err := pgconn.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "conninfo parse failed")
	}
	res := make([]Option, 0)
	add := func(k, v string) {
		if v != "" {
			res = append(res, Option{Keyword: k, Value: v})
		}
	}
	add("host", config.Host)
	if config.Port != 0 {
		add("port", strconv.Itoa(int(config.Port)))
	}
	add("dbname", config.Database)
	add("user", config.User)
	add("password", config.Password)
	if config.ConnectTimeout > 0 {
		add("connect_timeout", strconv.Itoa(int(config.ConnectTimeout.Seconds())))
	}
	params := make([]string, 0, len(config.RuntimeParams))
	for k := range config.RuntimeParams {
		params = append(params, k)
	}
	sort.Strings(params)
	for _, k := range params {
		add(k, config.RuntimeParams[k])
	}
	return res, nil
}
