package engine

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtsunne/ncmon/internal/client"
	"github.com/jtsunne/ncmon/internal/model"
)

// decode parses body the way the metrics client does.
func decode(t *testing.T, body string) *client.Payload {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var tree map[string]any
	require.NoError(t, dec.Decode(&tree))
	return &client.Payload{Tree: tree, Body: []byte(body)}
}

const fullPayload = `{
  "ocs": {
    "meta": {"status": "ok", "statuscode": 200, "message": "OK"},
    "data": {
      "nextcloud": {
        "system": {
          "version": "28.0.1.1",
          "freespace": 5000,
          "cpuload": [0.5, 1.25, "2"],
          "cpunum": 4,
          "mem_total": 8192,
          "mem_free": 2048,
          "swap_total": 1024,
          "swap_free": 1024,
          "maintenance": false,
          "failing_login_attempts": "3"
        },
        "storage": {
          "num_users": 12,
          "num_files": 1234567,
          "used": 1073741824,
          "free": 2147483648
        },
        "shares": {
          "num_shares": 40,
          "num_shares_user": 30,
          "num_fed_shares_sent": 2,
          "num_shares_link": 8
        }
      },
      "server": {
        "webserver": "Apache/2.4",
        "php": {
          "version": "8.2.10",
          "memory_limit": 536870912,
          "max_execution_time": 3600,
          "opcache": {
            "opcache_statistics": {"opcache_hit_rate": 98.456, "start_time": 1699996300},
            "memory_usage": {"used_memory": 1048576, "wasted_memory": 0}
          }
        },
        "database": {"type": "mysql", "version": "10.6.12", "size": 52428800, "host": "db"}
      },
      "activeUsers": {"last5minutes": 1, "last1hour": 4, "last24hours": 9},
      "app": {
        "enabled": ["files", {"id": "calendar", "version": "4.5.0"}, {"id": "activity"}],
        "installed": ["files", "calendar", "activity", "deck"]
      }
    }
  }
}`

var fixedNow = time.Unix(1_700_000_000, 0)

func TestNormalize_FullPayload(t *testing.T) {
	p := decode(t, fullPayload)
	snap := Normalize(p, "/cfg/ncmonitor.txt", fixedNow)

	want := map[model.Key]string{
		model.KeyVersion:         "28.0.1.1",
		model.KeyPHPUptime:       "1 hour, 1 minute",
		model.KeyUsers:           "12",
		model.KeyFiles:           "1,234,567",
		model.KeyWebserver:       "Apache/2.4",
		model.KeyCPUCount:        "4",
		model.KeyActive5m:        "1",
		model.KeyActive1h:        "4",
		model.KeyActive24h:       "9",
		model.KeyFailedLogins:    "3",
		model.KeyMaintenance:     "No",
		model.KeySharesTotal:     "40",
		model.KeySharesLocal:     "30",
		model.KeySharesFederated: "2",
		model.KeySharesLink:      "8",
		model.KeyRAMUsed:         "6.00 MB",
		model.KeyRAMTotal:        "8.00 MB",
		model.KeySwapUsed:        "0 Bytes",
		model.KeySwapTotal:       "1.00 MB",
		model.KeyCPULoad1m:       "0.50",
		model.KeyCPULoad5m:       "1.25",
		model.KeyCPULoad15m:      "2.00",
		model.KeyOpcacheHitRate:  "98.46%",
		model.KeyOpcacheUsed:     "1.00 MB",
		model.KeyOpcacheWasted:   "0 Bytes",
		model.KeyStorageUsed:     "1.00 GB",
		model.KeyStorageFree:     "2.00 GB",
		model.KeyDBSize:          "50.00 MB",
		model.KeyAppsEnabled:     "3",
		model.KeyAppsInstalled:   "4",
		model.KeyAppList:         "activity: vN/A\ncalendar: v4.5.0\nfiles: vN/A",
		model.KeyPHPVersion:      "8.2.10",
		model.KeyPHPMemoryLimit:  "512.00 MB",
		model.KeyPHPMaxExecution: "3600s",
		model.KeyDBType:          "mysql",
		model.KeyDBVersion:       "10.6.12",
		model.KeyDBHost:          "db",
	}
	assert.Equal(t, want, snap.Values())
	assert.Equal(t, fullPayload, string(snap.Raw()))
	assert.Equal(t, "/cfg/ncmonitor.txt", snap.Server())
	assert.Equal(t, fixedNow, snap.FetchedAt())
}

func TestNormalize_Gauges(t *testing.T) {
	snap := Normalize(decode(t, fullPayload), "a", fixedNow)

	load, ok := snap.Gauge(model.KeyCPULoad1m)
	require.True(t, ok)
	assert.Equal(t, 0.5, load)

	ram, _ := snap.Gauge(model.KeyRAMUsed)
	assert.Equal(t, float64(6144*1024), ram)

	active, _ := snap.Gauge(model.KeyActive5m)
	assert.Equal(t, float64(1), active)
}

func TestNormalize_EmptyPayload(t *testing.T) {
	for name, p := range map[string]*client.Payload{
		"nil payload":  nil,
		"empty tree":   {Tree: map[string]any{}},
		"no data":      decode(t, `{"ocs":{"meta":{"status":"ok"}}}`),
		"data is list": decode(t, `{"ocs":{"meta":{"status":"ok"},"data":[1,2]}}`),
	} {
		t.Run(name, func(t *testing.T) {
			snap := Normalize(p, "x", fixedNow)

			assert.Len(t, snap.Values(), len(model.AllKeys))
			assert.Equal(t, model.NotAvailable, snap.Get(model.KeyVersion))
			assert.Equal(t, "N/A or Fresh Start", snap.Get(model.KeyPHPUptime))
			assert.Equal(t, "0", snap.Get(model.KeyUsers))
			assert.Equal(t, "0", snap.Get(model.KeyFiles))
			assert.Equal(t, model.NotAvailable, snap.Get(model.KeyCPUCount))
			assert.Equal(t, "No", snap.Get(model.KeyMaintenance))
			assert.Equal(t, "0 Bytes", snap.Get(model.KeyRAMUsed))
			assert.Equal(t, "0.00", snap.Get(model.KeyCPULoad15m))
			assert.Equal(t, "0.00%", snap.Get(model.KeyOpcacheHitRate))
			assert.Equal(t, StorageMissing, snap.Get(model.KeyStorageUsed))
			assert.Equal(t, "0 Bytes (System Freespace)", snap.Get(model.KeyStorageFree))
			assert.Equal(t, DataMissing, snap.Get(model.KeyAppsEnabled))
			assert.Equal(t, AppListMissing, snap.Get(model.KeyAppList))
			assert.Equal(t, model.NotAvailable, snap.Get(model.KeyPHPMaxExecution))
			assert.Equal(t, model.NotAvailable, snap.Get(model.KeyDBHost))
		})
	}
}

func TestNormalize_StorageFallback(t *testing.T) {
	p := decode(t, `{"ocs":{"data":{"nextcloud":{
		"system":{"freespace":5000},
		"storage":{"used":0,"free":0}}}}}`)

	snap := Normalize(p, "x", fixedNow)
	assert.Equal(t, "0 Bytes (Data Missing)", snap.Get(model.KeyStorageUsed))
	assert.Equal(t, "4.88 KB (System Freespace)", snap.Get(model.KeyStorageFree))
}

func TestNormalize_StorageSingleZeroDoesNotFallBack(t *testing.T) {
	p := decode(t, `{"ocs":{"data":{"nextcloud":{
		"system":{"freespace":5000},
		"storage":{"used":0,"free":2048}}}}}`)

	snap := Normalize(p, "x", fixedNow)
	assert.Equal(t, "0 Bytes", snap.Get(model.KeyStorageUsed))
	assert.Equal(t, "2.00 KB", snap.Get(model.KeyStorageFree))
}

func TestNormalize_MemoryClampsWhenFreeExceedsTotal(t *testing.T) {
	p := decode(t, `{"ocs":{"data":{"nextcloud":{"system":{
		"mem_total":1024,"mem_free":4096,"swap_total":-5,"swap_free":"abc"}}}}}`)

	snap := Normalize(p, "x", fixedNow)
	assert.Equal(t, "0 Bytes", snap.Get(model.KeyRAMUsed))
	assert.Equal(t, "1.00 MB", snap.Get(model.KeyRAMTotal))
	assert.Equal(t, "0 Bytes", snap.Get(model.KeySwapUsed))
	assert.Equal(t, "0 Bytes", snap.Get(model.KeySwapTotal))
}

func TestNormalize_CountersNeverNegative(t *testing.T) {
	p := decode(t, `{"ocs":{"data":{
		"nextcloud":{
			"system":{"failing_login_attempts":-2,"cpuload":[-1,"x",null]},
			"storage":{"num_users":-7,"num_files":"-12"},
			"shares":{"num_shares":"12.9","num_shares_link":null}},
		"activeUsers":{"last5minutes":-1,"last1hour":"n/a"}}}}`)

	snap := Normalize(p, "x", fixedNow)
	assert.Equal(t, "0", snap.Get(model.KeyFailedLogins))
	assert.Equal(t, "0", snap.Get(model.KeyUsers))
	assert.Equal(t, "0", snap.Get(model.KeyFiles))
	assert.Equal(t, "12", snap.Get(model.KeySharesTotal))
	assert.Equal(t, "0", snap.Get(model.KeySharesLink))
	assert.Equal(t, "0", snap.Get(model.KeyActive5m))
	assert.Equal(t, "0", snap.Get(model.KeyActive1h))
	assert.Equal(t, "0.00", snap.Get(model.KeyCPULoad1m))
	assert.Equal(t, "0.00", snap.Get(model.KeyCPULoad5m))
	assert.Equal(t, "0.00", snap.Get(model.KeyCPULoad15m))
}

func TestNormalize_Uptime(t *testing.T) {
	tests := []struct {
		name  string
		start string
		want  string
	}{
		{"missing start", `null`, "N/A or Fresh Start"},
		{"zero start", `0`, "N/A or Fresh Start"},
		{"start in the future", `1700000100`, "N/A or Fresh Start"},
		{"start equals now", `1700000000`, "N/A or Fresh Start"},
		{"seconds", `1699999955`, "45 seconds"},
		{"string start", `"1699996300"`, "1 hour, 1 minute"},
		{"days", `1699740800`, "3 days"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := decode(t, `{"ocs":{"data":{"server":{"php":{"opcache":{"opcache_statistics":{"start_time":`+tc.start+`}}}}}}}`)
			assert.Equal(t, tc.want, Normalize(p, "x", fixedNow).Get(model.KeyPHPUptime))
		})
	}
}

func TestNormalize_Maintenance(t *testing.T) {
	for raw, want := range map[string]string{
		`true`:   "Yes",
		`false`:  "No",
		`1`:      "Yes",
		`0`:      "No",
		`"true"`: "Yes",
		`"no"`:   "No",
		`null`:   "No",
	} {
		t.Run(raw, func(t *testing.T) {
			p := decode(t, `{"ocs":{"data":{"nextcloud":{"system":{"maintenance":`+raw+`}}}}}`)
			assert.Equal(t, want, Normalize(p, "x", fixedNow).Get(model.KeyMaintenance))
		})
	}
}

func TestNormalize_AppSummary(t *testing.T) {
	tests := []struct {
		name      string
		app       string
		enabled   string
		installed string
		list      string
	}{
		{
			name:      "bare names and records sorted",
			app:       `{"enabled":["zeta",{"id":"alpha","version":"1.0"},{"name":"mid","version":"2"}],"installed":["a","b"]}`,
			enabled:   "3",
			installed: "2",
			list:      "alpha: v1.0\nmid: v2\nzeta: vN/A",
		},
		{
			name:      "record without id",
			app:       `{"enabled":[{"version":"9"}],"installed":[]}`,
			enabled:   "1",
			installed: "0",
			list:      "Unknown App: v9",
		},
		{
			name:      "unsupported entries still counted",
			app:       `{"enabled":["files",42,null],"installed":["files"]}`,
			enabled:   "3",
			installed: "1",
			list:      "files: vN/A",
		},
		{
			name:      "absent members are empty",
			app:       `{"num_installed":10}`,
			enabled:   "0",
			installed: "0",
			list:      "",
		},
		{
			name:      "enabled is a string",
			app:       `{"enabled":"files,calendar","installed":["files"]}`,
			enabled:   DataMissing,
			installed: DataMissing,
			list:      AppListMissing,
		},
		{
			name:      "installed is an object",
			app:       `{"enabled":[],"installed":{"files":"1.0"}}`,
			enabled:   DataMissing,
			installed: DataMissing,
			list:      AppListMissing,
		},
		{
			name:      "enabled is null",
			app:       `{"enabled":null,"installed":[]}`,
			enabled:   DataMissing,
			installed: DataMissing,
			list:      AppListMissing,
		},
		{
			name:      "app is a list",
			app:       `[["deeply",["nested"]],{"enabled":[]}]`,
			enabled:   DataMissing,
			installed: DataMissing,
			list:      AppListMissing,
		},
		{
			name:      "app is an empty object",
			app:       `{}`,
			enabled:   DataMissing,
			installed: DataMissing,
			list:      AppListMissing,
		},
		{
			name:      "app is a number",
			app:       `7`,
			enabled:   DataMissing,
			installed: DataMissing,
			list:      AppListMissing,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := decode(t, `{"ocs":{"data":{"app":`+tc.app+`}}}`)

			var snap model.Snapshot
			require.NotPanics(t, func() { snap = Normalize(p, "x", fixedNow) })
			assert.Equal(t, tc.enabled, snap.Get(model.KeyAppsEnabled))
			assert.Equal(t, tc.installed, snap.Get(model.KeyAppsInstalled))
			assert.Equal(t, tc.list, snap.Get(model.KeyAppList))
		})
	}
}

func TestNormalize_WrongTypesDoNotPanic(t *testing.T) {
	bodies := []string{
		`{"ocs":"flat"}`,
		`{"ocs":{"data":{"nextcloud":"x","server":[],"activeUsers":3}}}`,
		`{"ocs":{"data":{"nextcloud":{"system":[],"storage":"s","shares":1}}}}`,
		`{"ocs":{"data":{"server":{"php":{"opcache":[1]},"database":"none"}}}}`,
		`{"ocs":{"data":{"nextcloud":{"system":{"cpuload":"1 2 3","version":{"major":28}}}}}}`,
	}
	for _, body := range bodies {
		p := decode(t, body)
		require.NotPanics(t, func() {
			snap := Normalize(p, "x", fixedNow)
			assert.Len(t, snap.Values(), len(model.AllKeys))
		}, body)
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"nil", nil, 0},
		{"empty string", "", 0},
		{"text", "abc", 0},
		{"bool", true, 0},
		{"slice", []any{1}, 0},
		{"json int", json.Number("42"), 42},
		{"json float truncates", json.Number("42.9"), 42},
		{"json negative float", json.Number("-3.7"), -3},
		{"json exponent", json.Number("1e3"), 1000},
		{"big json int", json.Number("9007199254740993"), 9007199254740993},
		{"numeric string", " 123.0 ", 123},
		{"float64", 7.99, 7},
		{"nan string", "NaN", 0},
		{"inf string", "Inf", 0},
		{"overflow", json.Number("1e30"), math.MaxInt64},
		{"negative overflow", json.Number("-1e30"), math.MinInt64},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToInt(tc.in))
		})
	}
}

func TestToCount(t *testing.T) {
	assert.Equal(t, int64(0), ToCount(json.Number("-5")))
	assert.Equal(t, int64(5), ToCount("5"))
}

func TestToFloat(t *testing.T) {
	assert.Equal(t, 0.0, ToFloat(nil))
	assert.Equal(t, 0.0, ToFloat("x"))
	assert.Equal(t, 1.5, ToFloat(json.Number("1.5")))
	assert.Equal(t, 2.0, ToFloat("2"))
	assert.Equal(t, 0.0, ToFloat(math.Inf(1)))
}

func TestToString(t *testing.T) {
	assert.Equal(t, "N/A", ToString(nil, "N/A"))
	assert.Equal(t, "N/A", ToString("", "N/A"))
	assert.Equal(t, "mysql", ToString("mysql", "N/A"))
	assert.Equal(t, "4", ToString(json.Number("4"), "N/A"))
	assert.Equal(t, "true", ToString(true, "N/A"))
	assert.Equal(t, "N/A", ToString(map[string]any{}, "N/A"))
}
