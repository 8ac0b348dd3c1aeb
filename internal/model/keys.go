package model

// Key names one metric in a Snapshot.
type Key string

// Core
const (
	KeyVersion   Key = "version"
	KeyPHPUptime Key = "php_uptime"
	KeyUsers     Key = "users"
	KeyFiles     Key = "files"
	KeyWebserver Key = "webserver"
	KeyCPUCount  Key = "cpu_count"
)

// Activity & security
const (
	KeyActive5m        Key = "active_5m"
	KeyActive1h        Key = "active_1h"
	KeyActive24h       Key = "active_24h"
	KeyFailedLogins    Key = "failed_logins"
	KeyMaintenance     Key = "maintenance"
	KeySharesTotal     Key = "shares_total"
	KeySharesLocal     Key = "shares_local"
	KeySharesFederated Key = "shares_federated"
	KeySharesLink      Key = "shares_link"
)

// System health
const (
	KeyRAMUsed        Key = "ram_used"
	KeyRAMTotal       Key = "ram_total"
	KeySwapUsed       Key = "swap_used"
	KeySwapTotal      Key = "swap_total"
	KeyCPULoad1m      Key = "cpu_load_1m"
	KeyCPULoad5m      Key = "cpu_load_5m"
	KeyCPULoad15m     Key = "cpu_load_15m"
	KeyOpcacheHitRate Key = "opcache_hit_rate"
	KeyOpcacheUsed    Key = "opcache_used"
	KeyOpcacheWasted  Key = "opcache_wasted"
)

// Storage & apps
const (
	KeyStorageUsed   Key = "storage_used"
	KeyStorageFree   Key = "storage_free"
	KeyDBSize        Key = "db_size"
	KeyAppsEnabled   Key = "apps_enabled"
	KeyAppsInstalled Key = "apps_installed"
	KeyAppList       Key = "app_list"
)

// System configuration
const (
	KeyPHPVersion      Key = "php_version"
	KeyPHPMemoryLimit  Key = "php_memory_limit"
	KeyPHPMaxExecution Key = "php_max_execution"
	KeyDBType          Key = "db_type"
	KeyDBVersion       Key = "db_version"
	KeyDBHost          Key = "db_host"
)

// NotAvailable is the placeholder shown for a key with no value.
const NotAvailable = "N/A"

// Section groups keys for display. Sections are listed in the order a
// dashboard shows them.
type Section struct {
	Title string
	Keys  []Key
}

// Sections is the display grouping of every key in AllKeys.
var Sections = []Section{
	{
		Title: "Core",
		Keys:  []Key{KeyVersion, KeyPHPUptime, KeyUsers, KeyFiles, KeyWebserver, KeyCPUCount},
	},
	{
		Title: "System Health",
		Keys: []Key{
			KeyRAMUsed, KeyRAMTotal, KeySwapUsed, KeySwapTotal,
			KeyCPULoad1m, KeyCPULoad5m, KeyCPULoad15m,
			KeyOpcacheHitRate, KeyOpcacheUsed, KeyOpcacheWasted,
		},
	},
	{
		Title: "Activity & Security",
		Keys: []Key{
			KeyActive5m, KeyActive1h, KeyActive24h, KeyFailedLogins, KeyMaintenance,
			KeySharesTotal, KeySharesLocal, KeySharesFederated, KeySharesLink,
		},
	},
	{
		Title: "Storage",
		Keys:  []Key{KeyStorageUsed, KeyStorageFree, KeyDBSize, KeyAppsEnabled, KeyAppsInstalled, KeyAppList},
	},
	{
		Title: "System Config",
		Keys:  []Key{KeyPHPVersion, KeyPHPMemoryLimit, KeyPHPMaxExecution, KeyDBType, KeyDBVersion, KeyDBHost},
	},
}

// AllKeys lists every key a Snapshot carries, in section order.
var AllKeys = func() []Key {
	var keys []Key
	for _, s := range Sections {
		keys = append(keys, s.Keys...)
	}
	return keys
}()

var labels = map[Key]string{
	KeyVersion:         "Nextcloud Version",
	KeyPHPUptime:       "PHP Uptime",
	KeyUsers:           "Total Users",
	KeyFiles:           "Total Files",
	KeyWebserver:       "Web Server",
	KeyCPUCount:        "CPU Cores",
	KeyActive5m:        "Active (5 min)",
	KeyActive1h:        "Active (1 hour)",
	KeyActive24h:       "Active (24 hours)",
	KeyFailedLogins:    "Failed Logins",
	KeyMaintenance:     "Maintenance Mode",
	KeySharesTotal:     "Total Shares",
	KeySharesLocal:     "User Shares",
	KeySharesFederated: "Federated Shares",
	KeySharesLink:      "Public Links",
	KeyRAMUsed:         "RAM Used",
	KeyRAMTotal:        "RAM Total",
	KeySwapUsed:        "Swap Used",
	KeySwapTotal:       "Swap Total",
	KeyCPULoad1m:       "CPU Load (1m)",
	KeyCPULoad5m:       "CPU Load (5m)",
	KeyCPULoad15m:      "CPU Load (15m)",
	KeyOpcacheHitRate:  "Opcache Hit Rate",
	KeyOpcacheUsed:     "Opcache Used",
	KeyOpcacheWasted:   "Opcache Wasted",
	KeyStorageUsed:     "Storage Used",
	KeyStorageFree:     "Storage Free",
	KeyDBSize:          "Database Size",
	KeyAppsEnabled:     "Enabled Apps",
	KeyAppsInstalled:   "Installed Apps",
	KeyAppList:         "Enabled App List",
	KeyPHPVersion:      "PHP Version",
	KeyPHPMemoryLimit:  "PHP Memory Limit",
	KeyPHPMaxExecution: "PHP Max Execution",
	KeyDBType:          "Database Type",
	KeyDBVersion:       "Database Version",
	KeyDBHost:          "Database Host",
}

// Label returns the human-readable name of k, or k itself when unknown.
func (k Key) Label() string {
	if l, ok := labels[k]; ok {
		return l
	}
	return string(k)
}
