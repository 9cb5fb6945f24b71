// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hamed0406/slotwatch/internal/config"
	"github.com/hamed0406/slotwatch/internal/fetch"
)

func main() {
	_ = godotenv.Load()

	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Resolve()
	if err != nil {
		fail(err.Error())
	} else {
		ok(fmt.Sprintf("monitor: every %s, threshold +%d, fetch timeout %s", cfg.PollInterval, cfg.ChangeThreshold, cfg.FetchTimeout))
		ok(fmt.Sprintf("source: %s rows %q", cfg.SourceURL, cfg.TableSelector))
	}

	if cfg.SlackWebhookURL == "" && (cfg.LineChannelToken == "" || cfg.LineUserID == "") &&
		(cfg.TelegramBotToken == "" || cfg.TelegramChatID == 0) {
		warn("no notification channel configured; alerts will only be logged.")
	}
	if (cfg.LineChannelToken == "") != (cfg.LineUserID == "") {
		fail("LINE_CHANNEL_TOKEN and LINE_USER_ID must be set together.")
	}
	if (cfg.TelegramBotToken == "") != (cfg.TelegramChatID == 0) {
		fail("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together.")
	}

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty; POST /api/check is open to anyone who can reach the API.")
	}
	if len(cfg.PublicAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 {
		warn("no API keys configured; read routes are open.")
	}
	for _, name := range []string{"ADMIN_API_KEYS", "PUBLIC_API_KEYS"} {
		if strings.Contains(os.Getenv(name), " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	switch {
	case cfg.DatabaseURL != "":
		ok("alert log: postgres")
	case cfg.AlertDBPath != "":
		ok("alert log: sqlite at " + cfg.AlertDBPath)
	default:
		warn("DATABASE_URL and ALERT_DB_PATH empty; alert history is kept in memory only.")
	}

	if cfg.SourceURL != "" {
		checkSource(cfg.SourceURL, ok, warn)
	}

	ok("API_ADDR=" + cfg.Addr)
	if len(cfg.AllowedOrigins) == 0 {
		warn("ALLOWED_ORIGINS empty; CORS allows any origin.")
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}

// checkSource resolves and GETs the source page. Failures only warn, since
// preflight may run on a host without outbound access.
func checkSource(rawURL string, ok, warn func(string)) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dns := fetch.CheckDNS(ctx, fetch.HostOf(rawURL))
	if dns.Class != fetch.DNSResolves {
		warn(fmt.Sprintf("source host %s: dns=%s %s", dns.Host, dns.Class, dns.ResolverError))
		return
	}
	r := fetch.CheckHTTP(ctx, nil, rawURL)
	if !r.OK() {
		if r.Err != nil {
			warn(fmt.Sprintf("source GET failed: %v", r.Err))
		} else {
			warn("source GET returned " + r.Status)
		}
		return
	}
	ok(fmt.Sprintf("source reachable: %s in %s", r.Status, r.Latency.Round(time.Millisecond)))
}
