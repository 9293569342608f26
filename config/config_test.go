package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfig = `
timezone: Europe/Prague

api:
  address: 127.0.0.1
  port: 8080
  session_secret: not-a-secret

database:
  path: /tmp/powerplan.db
  data_retention_days: 30

meter:
  broker: mqtt.local
  port: 1883
  counters:
    - name: import
      topic: meters/main/import
      kind: grid_import
    - name: export
      topic: meters/main/export
      kind: grid_export
  batteries:
    - name: house
      soc_topic: battery/house/soc

pricing:
  mode: spot
  currency: CZK
  area: cez
  rate_class: d57d
  tariff_code: "405"
  fee_cost: 0.35
  fee_compensation: 0.45

battery_spec:
  capacity_kwh: 10
  charge_power_kw: 4
  discharge_power_kw: 6
  soc_min: 15
  soc_max: 90
  amortization_cost: 1.2

optimizer:
  url: http://optimizer.local/plan
  api_key: abc

logging:
  db_level: WARN
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cnfg, err := Load(writeTestConfig(t))
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	t.Run("Meter", func(t *testing.T) {
		if cnfg.Meter.Broker != "mqtt.local" || cnfg.Meter.Port != 1883 {
			t.Errorf("unexpected broker %s:%d", cnfg.Meter.Broker, cnfg.Meter.Port)
		}
		if len(cnfg.Meter.Counters) != 2 {
			t.Fatalf("expected 2 counters, got %d", len(cnfg.Meter.Counters))
		}
		if cnfg.Meter.Counters[0].Kind != "grid_import" {
			t.Errorf("unexpected counter kind %q", cnfg.Meter.Counters[0].Kind)
		}
		if len(cnfg.Meter.Batteries) != 1 || cnfg.Meter.Batteries[0].SocTopic != "battery/house/soc" {
			t.Errorf("unexpected batteries %+v", cnfg.Meter.Batteries)
		}
	})

	t.Run("Pricing", func(t *testing.T) {
		if cnfg.Pricing.Mode != "spot" || cnfg.Pricing.TariffCode != "405" {
			t.Errorf("unexpected pricing %+v", cnfg.Pricing)
		}
		if cnfg.Pricing.FeeCost != 0.35 || cnfg.Pricing.FeeCompensation != 0.45 {
			t.Errorf("unexpected fees %+v", cnfg.Pricing)
		}
	})

	t.Run("Battery Spec", func(t *testing.T) {
		if cnfg.BatterySpec.CapacityKwh != 10 {
			t.Errorf("expected capacity 10, got %f", cnfg.BatterySpec.CapacityKwh)
		}
		if cnfg.BatterySpec.SocMinPercent != 15 || cnfg.BatterySpec.SocMaxPercent != 90 {
			t.Errorf("unexpected soc limits %+v", cnfg.BatterySpec)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		if got := cnfg.GetTimezone(); got != "Europe/Prague" {
			t.Errorf("unexpected timezone %q", got)
		}
		if got := cnfg.Database.GetDataRetentionDays(); got != 30 {
			t.Errorf("expected configured retention 30, got %d", got)
		}
		if got := cnfg.Database.GetBackupRetentionDays(); got != 90 {
			t.Errorf("expected default backup retention 90, got %d", got)
		}
		if got := cnfg.Logging.GetDbMaxEntries(); got != 10000 {
			t.Errorf("expected default max log entries, got %d", got)
		}
		if got := cnfg.Optimizer.GetTimeout().Seconds(); got != 20 {
			t.Errorf("expected default optimizer timeout 20s, got %fs", got)
		}
	})
}
