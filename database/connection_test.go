package database

import (
	"testing"

	"github.com/Ananth-NQI/tripguide-backend/internal/config"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "tcp",
			cfg:  config.DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Pass: "pw", Name: "tripguide"},
			want: "host=localhost user=postgres password=pw dbname=tripguide port=5432 sslmode=disable",
		},
		{
			name: "cloud sql socket",
			cfg: config.DatabaseConfig{
				Host:                   "ignored",
				Port:                   5432,
				User:                   "bot",
				Pass:                   "pw",
				Name:                   "tripguide",
				InstanceConnectionName: "proj:region:inst",
			},
			want: "host=/cloudsql/proj:region:inst user=bot password=pw dbname=tripguide sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}
