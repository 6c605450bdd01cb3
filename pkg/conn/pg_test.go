package conn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionDSN(t *testing.T) {
	testCases := []struct {
		desc     string
		opt      Option
		expected string
	}{
		{
			"defaults",
			Option{},
			"postgres://localhost:5432?sslmode=disable",
		},
		{
			"full",
			Option{Host: "db", Port: 6543, User: "trader", Password: "s3cret", Database: "tradeflow", SSLMode: "require"},
			"postgres://trader:s3cret@db:6543/tradeflow?sslmode=require",
		},
		{
			"params",
			Option{User: "trader", Database: "tradeflow", Params: map[string]string{"application_name": "tradeflow", "": "skip"}},
			"postgres://trader@localhost:5432/tradeflow?application_name=tradeflow&sslmode=disable",
		},
		{
			"conn string wins",
			Option{Host: "ignored", ConnString: "postgres://x@y/z"},
			"postgres://x@y/z",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.opt.DSN())
		})
	}
}
