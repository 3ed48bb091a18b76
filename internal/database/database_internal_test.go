package database

import (
	"testing"

	"github.com/bigkaa/cloudbox/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		DBHost:     "db",
		DBPort:     5432,
		DBName:     "cloudbox",
		DBUser:     "cloudbox",
		DBPassword: "p@ss:w/rd",
		DBSSLMode:  "disable",
		DBMaxConns: 7,
	}
}

func TestMigrateURL(t *testing.T) {
	got, err := migrateURL(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := "pgx5://cloudbox:p%40ss%3Aw%2Frd@db:5432/cloudbox?sslmode=disable"
	if got != want {
		t.Errorf("migrateURL() = %q, ожидается %q", got, want)
	}
}

func TestPoolConfig(t *testing.T) {
	poolCfg, err := PoolConfig(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	if poolCfg.MaxConns != 7 {
		t.Errorf("MaxConns = %d, ожидается 7", poolCfg.MaxConns)
	}
	if got := poolCfg.ConnConfig.RuntimeParams["application_name"]; got != "cloudbox" {
		t.Errorf("application_name = %q", got)
	}
	if poolCfg.ConnConfig.Password != "p@ss:w/rd" {
		t.Errorf("пароль разобран неверно: %q", poolCfg.ConnConfig.Password)
	}
	if poolCfg.HealthCheckPeriod != healthCheckPeriod {
		t.Errorf("HealthCheckPeriod = %s", poolCfg.HealthCheckPeriod)
	}
}
