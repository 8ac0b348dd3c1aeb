package engine

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jtsunne/ncmon/internal/client"
	"github.com/jtsunne/ncmon/internal/format"
	"github.com/jtsunne/ncmon/internal/model"
)

// Sentinels used when the payload lacks data.
const (
	DataMissing     = "N/A (Data Missing)"
	AppListMissing  = "APP DATA IS MISSING FROM NEXTCLOUD API RESPONSE."
	StorageMissing  = "0 Bytes (Data Missing)"
	systemFreeLabel = " (System Freespace)"
)

// kbToBytes converts the kilobyte fields of the system section.
const kbToBytes = 1024

// Normalize flattens a serverinfo payload into a Snapshot. It never fails:
// missing or malformed fields degrade to sentinel values. server is the
// source path of the config the payload was fetched for and now is used to
// derive the PHP uptime.
func Normalize(p *client.Payload, server string, now time.Time) model.Snapshot {
	data := p.Data()
	nc := object(data, "nextcloud")
	system := object(nc, "system")
	storage := object(nc, "storage")
	shares := object(nc, "shares")
	srv := object(data, "server")
	db := object(srv, "database")
	php := object(srv, "php")
	opcache := object(php, "opcache")
	opStats := object(opcache, "opcache_statistics")
	opMem := object(opcache, "memory_usage")
	active := object(data, "activeUsers")

	v := make(map[model.Key]string, len(model.AllKeys))

	// Core
	v[model.KeyVersion] = ToString(system["version"], model.NotAvailable)
	v[model.KeyPHPUptime] = format.FormatUptime(uptime(ToInt(opStats["start_time"]), now))
	v[model.KeyUsers] = count(storage["num_users"])
	v[model.KeyFiles] = format.FormatNumber(ToCount(storage["num_files"]))
	v[model.KeyWebserver] = ToString(srv["webserver"], model.NotAvailable)
	v[model.KeyCPUCount] = countOrNA(system["cpunum"])

	// Activity & security
	v[model.KeyActive5m] = count(active["last5minutes"])
	v[model.KeyActive1h] = count(active["last1hour"])
	v[model.KeyActive24h] = count(active["last24hours"])
	v[model.KeyFailedLogins] = count(system["failing_login_attempts"])
	v[model.KeyMaintenance] = yesNo(ToBool(system["maintenance"]))
	v[model.KeySharesTotal] = count(shares["num_shares"])
	v[model.KeySharesLocal] = count(shares["num_shares_user"])
	v[model.KeySharesFederated] = count(shares["num_fed_shares_sent"])
	v[model.KeySharesLink] = count(shares["num_shares_link"])

	// System health
	ramUsed, ramTotal := memory(system["mem_total"], system["mem_free"])
	v[model.KeyRAMUsed] = format.FormatBytes(ramUsed)
	v[model.KeyRAMTotal] = format.FormatBytes(ramTotal)
	swapUsed, swapTotal := memory(system["swap_total"], system["swap_free"])
	v[model.KeySwapUsed] = format.FormatBytes(swapUsed)
	v[model.KeySwapTotal] = format.FormatBytes(swapTotal)

	load := cpuLoad(system["cpuload"])
	v[model.KeyCPULoad1m] = format.FormatLoad(load[0])
	v[model.KeyCPULoad5m] = format.FormatLoad(load[1])
	v[model.KeyCPULoad15m] = format.FormatLoad(load[2])

	v[model.KeyOpcacheHitRate] = format.FormatPercent(max(ToFloat(opStats["opcache_hit_rate"]), 0))
	v[model.KeyOpcacheUsed] = format.FormatBytes(ToInt(opMem["used_memory"]))
	v[model.KeyOpcacheWasted] = format.FormatBytes(ToInt(opMem["wasted_memory"]))

	// Storage & apps
	v[model.KeyStorageUsed], v[model.KeyStorageFree] = storageUsage(
		ToInt(storage["used"]), ToInt(storage["free"]), ToInt(system["freespace"]))
	v[model.KeyDBSize] = format.FormatBytes(ToInt(db["size"]))

	apps := summarizeApps(data["app"])
	v[model.KeyAppsEnabled] = apps.enabled
	v[model.KeyAppsInstalled] = apps.installed
	v[model.KeyAppList] = apps.list

	// System configuration
	v[model.KeyPHPVersion] = ToString(php["version"], model.NotAvailable)
	v[model.KeyPHPMemoryLimit] = format.FormatBytes(ToInt(php["memory_limit"]))
	if php["max_execution_time"] != nil {
		v[model.KeyPHPMaxExecution] = count(php["max_execution_time"]) + "s"
	} else {
		v[model.KeyPHPMaxExecution] = model.NotAvailable
	}
	v[model.KeyDBType] = ToString(db["type"], model.NotAvailable)
	v[model.KeyDBVersion] = ToString(db["version"], model.NotAvailable)
	v[model.KeyDBHost] = ToString(db["host"], model.NotAvailable)

	var raw []byte
	if p != nil {
		raw = p.Body
	}
	return model.NewSnapshot(server, now, v, raw).WithGauges(map[model.Key]float64{
		model.KeyCPULoad1m: load[0],
		model.KeyRAMUsed:   float64(ramUsed),
		model.KeyActive5m:  float64(ToCount(active["last5minutes"])),
	})
}

// object returns m[key] when it is a JSON object, nil otherwise. Indexing
// the nil result is safe and yields nil for every key.
func object(m map[string]any, key string) map[string]any {
	o, _ := m[key].(map[string]any)
	return o
}

func count(v any) string {
	return strconv.FormatInt(ToCount(v), 10)
}

func countOrNA(v any) string {
	if v == nil {
		return model.NotAvailable
	}
	return count(v)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// uptime is now minus start in seconds when start is set and in the past.
func uptime(start int64, now time.Time) int64 {
	n := now.Unix()
	if start <= 0 || n <= start {
		return 0
	}
	return n - start
}

// memory converts kilobyte total/free fields into used and total bytes,
// both clamped at zero.
func memory(totalField, freeField any) (used, total int64) {
	totalKB := max(ToInt(totalField), 0)
	freeKB := max(ToInt(freeField), 0)
	return kbBytes(max(totalKB-freeKB, 0)), kbBytes(totalKB)
}

func kbBytes(kb int64) int64 {
	if kb > math.MaxInt64/kbToBytes {
		return math.MaxInt64
	}
	return kb * kbToBytes
}

// cpuLoad reads the 1, 5 and 15 minute load averages. Missing entries and
// negative values are 0.
func cpuLoad(v any) [3]float64 {
	var load [3]float64
	list, _ := v.([]any)
	for i := 0; i < len(load) && i < len(list); i++ {
		load[i] = max(ToFloat(list[i]), 0)
	}
	return load
}

// storageUsage renders used and free storage. When the server reports both
// as zero the storage section is considered missing and free falls back to
// the system free space.
func storageUsage(used, free, systemFree int64) (string, string) {
	if used == 0 && free == 0 {
		return StorageMissing, format.FormatBytes(systemFree) + systemFreeLabel
	}
	return format.FormatBytes(used), format.FormatBytes(free)
}

type appSummary struct {
	enabled   string
	installed string
	list      string
}

// summarizeApps builds the enabled app list. Anything other than an object
// whose enabled and installed members are arrays (or absent) yields the
// missing-data sentinels.
func summarizeApps(v any) appSummary {
	missing := appSummary{enabled: DataMissing, installed: DataMissing, list: AppListMissing}

	app, ok := v.(map[string]any)
	if !ok || len(app) == 0 {
		return missing
	}
	enabled, okEnabled := list(app, "enabled")
	installed, okInstalled := list(app, "installed")
	if !okEnabled || !okInstalled {
		return missing
	}

	lines := make([]string, 0, len(enabled))
	for _, e := range enabled {
		switch a := e.(type) {
		case string:
			lines = append(lines, a+": v"+model.NotAvailable)
		case map[string]any:
			name := ToString(a["id"], ToString(a["name"], "Unknown App"))
			lines = append(lines, name+": v"+ToString(a["version"], model.NotAvailable))
		}
	}
	slices.Sort(lines)

	return appSummary{
		enabled:   strconv.Itoa(len(enabled)),
		installed: strconv.Itoa(len(installed)),
		list:      strings.Join(lines, "\n"),
	}
}

// list returns m[key] as an array. An absent key is an empty array; a
// present value of any other type, null included, is not ok.
func list(m map[string]any, key string) ([]any, bool) {
	v, present := m[key]
	if !present {
		return nil, true
	}
	l, ok := v.([]any)
	return l, ok
}
