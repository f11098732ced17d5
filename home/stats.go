package home

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
	"github.com/samber/lo"
)

const (
	StatsAnsiReset    = "\u001b[0m"
	StatsAnsiPink     = "\u001b[35m"
	StatsAnsiPinkBold = "\u001b[35;1m"
	statsTopCommands  = 10
)

func statsTitle(text string) string {
	return fmt.Sprintf("%s%s%s", StatsAnsiPink, text, StatsAnsiReset)
}

func statsLine(key, val string) string {
	return fmt.Sprintf("%s> %s:%s %s%s%s", StatsAnsiPink, key, StatsAnsiReset, StatsAnsiPinkBold, val, StatsAnsiReset)
}

func init() {
	sys.RegisterCommand(&sys.Command{
		Name:        "stats",
		Description: "Show bot and command usage statistics",
		Bot:         botText,
		Handler:     handleStats,
	})
}

func handleStats(ctx *sys.Context) (*sys.Reply, error) {
	top, err := sys.TopCommandStats(ctx, sys.DB, statsTopCommands)
	if err != nil {
		return nil, err
	}

	queues := 0
	if j := proc.GetJukebox(); j != nil {
		queues = j.Controller.Queues().Len()
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	app := []string{
		statsTitle("App"),
		statsLine("Uptime", formatUptime(time.Since(sys.StartupTime))),
		statsLine("Servers", fmt.Sprint(ctx.Client.Caches.GuildsLen())),
		statsLine("Active queues", fmt.Sprint(queues)),
		statsLine("Gateway", ctx.Client.Gateway.Latency().Round(time.Millisecond).String()),
		statsLine("Memory", fmt.Sprintf("%.2f MB", float64(m.HeapAlloc)/1024/1024)),
		statsLine("Goroutines", fmt.Sprint(runtime.NumGoroutine())),
	}

	content := fmt.Sprintf("```ansi\n%s\n```\n%s", strings.Join(app, "\n"), usageTable(ctx, top))
	return &sys.Reply{Title: ctx.T("stats.title", nil), Content: content}, nil
}

func usageTable(ctx *sys.Context, top []sys.CommandStat) string {
	if len(top) == 0 {
		return ctx.T("stats.no_usage", nil)
	}
	lines := lo.Map(top, func(s sys.CommandStat, i int) string {
		return fmt.Sprintf("`%2d.` **%s** %d", i+1, s.Command, s.Used)
	})
	return strings.Join(lines, "\n")
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}
