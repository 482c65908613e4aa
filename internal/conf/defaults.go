package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared with other packages.
const (
	DefaultWebListen      = ":8080"
	DefaultMetricsPath    = "/metrics"
	DefaultMQTTTopic      = "foodscan"
	DefaultSQLitePath     = "data/foodscan.db"
	DefaultGeminiModel    = "gemini-1.5-flash"
	DefaultPlaceholderURL = "https://static.foodscan.app/img/product-placeholder.png"
)

// setDefaultConfig sets default values for every setting.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("main.name", "FoodScan")
	v.SetDefault("main.debug", false)
	v.SetDefault("main.user", "")

	v.SetDefault("logging.defaultlevel", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.fileoutput.enabled", false)
	v.SetDefault("logging.fileoutput.path", "logs/foodscan.log")
	v.SetDefault("logging.fileoutput.level", "info")

	v.SetDefault("lookup.timeout", 10*time.Second)
	v.SetDefault("lookup.retries", 3)
	v.SetDefault("lookup.ratelimit", 2.0)
	v.SetDefault("lookup.burst", 2)
	v.SetDefault("lookup.cachettl", 24*time.Hour)
	v.SetDefault("lookup.negativecachettl", 15*time.Minute)
	v.SetDefault("lookup.barcodelookup.enabled", false)
	v.SetDefault("lookup.barcodelookup.apikey", "")
	v.SetDefault("lookup.barcodelookup.endpoint", "https://api.barcodelookup.com/v3")
	v.SetDefault("lookup.openfoodfacts.enabled", true)
	v.SetDefault("lookup.openfoodfacts.endpoint", "https://world.openfoodfacts.org")

	v.SetDefault("ocr.engine", "text")
	v.SetDefault("ocr.gemini.apikey", "")
	v.SetDefault("ocr.gemini.model", DefaultGeminiModel)

	v.SetDefault("storage.session.ttl", 24*time.Hour)
	v.SetDefault("storage.remote.driver", "none")
	v.SetDefault("storage.remote.sqlite.path", DefaultSQLitePath)
	v.SetDefault("storage.remote.mysql.host", "localhost")
	v.SetDefault("storage.remote.mysql.port", "3306")
	v.SetDefault("storage.remote.mysql.username", "")
	v.SetDefault("storage.remote.mysql.password", "")
	v.SetDefault("storage.remote.mysql.database", "foodscan")

	v.SetDefault("preferences.avoided", []string{"aspartame", "high fructose corn syrup", "hydrogenated"})
	v.SetDefault("preferences.custom", []string{})
	v.SetDefault("preferences.goal", "maintain")

	v.SetDefault("product.placeholderimage", DefaultPlaceholderURL)

	v.SetDefault("pipeline.scantimeout", 30*time.Second)

	v.SetDefault("notification.maxitems", 100)
	v.SetDefault("notification.push.enabled", false)
	v.SetDefault("notification.push.urls", []string{})
	v.SetDefault("notification.push.types", []string{"warning", "error"})
	v.SetDefault("notification.push.timeout", 10*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", DefaultMQTTTopic)
	v.SetDefault("mqtt.clientid", "foodscan")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("webserver.listen", DefaultWebListen)
	v.SetDefault("webserver.jwtsecret", "")
	v.SetDefault("webserver.sessionttl", time.Hour)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", DefaultMetricsPath)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")

	v.SetDefault("archive.s3.enabled", false)
	v.SetDefault("archive.s3.prefix", "foodscan")

	v.SetDefault("eventbus.buffersize", 1024)
	v.SetDefault("eventbus.workers", 1)
}
