package postgres

import (
	"testing"
	"time"

	"github.com/sifan077/PowerStats/config"
)

func TestConnString(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.PostgresConfig
		want string
	}{
		{
			name: "defaults",
			cfg:  config.PostgresConfig{User: "stats", Database: "powerstats"},
			want: "postgres://stats@localhost:5432/powerstats?sslmode=disable",
		},
		{
			name: "escapes credentials",
			cfg: config.PostgresConfig{
				Host:     "db",
				Port:     6543,
				User:     "stats",
				Password: "p@ss/word",
				Database: "powerstats",
				SSLMode:  "require",
			},
			want: "postgres://stats:p@ss%2Fword@db:6543/powerstats?sslmode=require",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConnString(tc.cfg); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestPoolConfig_AppliesSizing(t *testing.T) {
	poolCfg, err := PoolConfig(config.PostgresConfig{
		User:            "stats",
		Database:        "powerstats",
		MaxConns:        12,
		MinConns:        2,
		MaxConnLifetime: "15m",
		MaxConnIdleTime: "not-a-duration",
	})
	if err != nil {
		t.Fatalf("PoolConfig returned error: %v", err)
	}

	if poolCfg.MaxConns != 12 || poolCfg.MinConns != 2 {
		t.Fatalf("unexpected sizing: max=%d min=%d", poolCfg.MaxConns, poolCfg.MinConns)
	}
	if poolCfg.MaxConnLifetime != 15*time.Minute {
		t.Fatalf("expected 15m lifetime, got %s", poolCfg.MaxConnLifetime)
	}
	if poolCfg.MaxConnIdleTime != 30*time.Minute {
		t.Fatalf("expected pgx default idle time for bad input, got %s", poolCfg.MaxConnIdleTime)
	}
}
