package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "defaults",
			cfg:  Config{User: "callcache", Name: "callcache"},
			want: "host=localhost port=5432 user=callcache dbname=callcache sslmode=disable application_name=callcache TimeZone=UTC",
		},
		{
			name: "explicit host and tls",
			cfg:  Config{User: "u", Name: "db", Host: "db.example.com", Port: 6543, Password: "pass", TLSMode: "verify-full"},
			want: "host=db.example.com port=6543 user=u dbname=db password=pass sslmode=verify-full application_name=callcache TimeZone=UTC",
		},
		{
			name: "dsn override",
			cfg:  Config{DSN: "postgres://u@h/db"},
			want: "postgres://u@h/db",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dsn, err := buildPostgresDSN(tc.cfg)
			require.NoError(t, err)
			require.Equal(t, tc.want, dsn)
		})
	}

	_, err := buildPostgresDSN(Config{})
	require.ErrorContains(t, err, "postgres configuration requires user and database name")
}

func TestBuildMySQLDSN(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "defaults",
			cfg:  Config{User: "callcache", Name: "callcache"},
			want: "callcache@tcp(127.0.0.1:3306)/callcache?charset=utf8mb4&loc=UTC&parseTime=True",
		},
		{
			name: "require tls",
			cfg:  Config{User: "u", Password: "secret", Name: "db", Host: "db.example.com", Port: 3307, TLSMode: "require"},
			want: "u:secret@tcp(db.example.com:3307)/db?charset=utf8mb4&loc=UTC&parseTime=True&tls=true",
		},
		{
			name: "skip verify",
			cfg:  Config{User: "u", Name: "db", TLSMode: "skip-verify"},
			want: "u@tcp(127.0.0.1:3306)/db?charset=utf8mb4&loc=UTC&parseTime=True&tls=skip-verify",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dsn, err := buildMySQLDSN(tc.cfg)
			require.NoError(t, err)
			require.Equal(t, tc.want, dsn)
		})
	}

	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.ErrorContains(t, err, "mysql configuration requires user and database name")
}
