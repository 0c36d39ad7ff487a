package commands

import (
	"fmt"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
)

var startTime = time.Now()

// AboutEmbed describes the running bot: uptime, memory usage, Go version and
// active sessions.
func (m *Music) AboutEmbed() *discordgo.MessageEmbed {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryUsage := fmt.Sprintf("%.2f MB", float64(memStats.Alloc)/1024/1024)

	return &discordgo.MessageEmbed{
		Title:       "Bot Information",
		Description: "Fresh beats, straight from the oven 🥖",
		Color:       0x00ff00,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "David Baguetta",
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Uptime", Value: formatUptime(time.Since(startTime)), Inline: true},
			{Name: "Memory Usage", Value: memoryUsage, Inline: true},
			{Name: "Go Version", Value: runtime.Version(), Inline: true},
			{Name: "Active Sessions", Value: fmt.Sprintf("%d", m.registry.Len()), Inline: true},
			{Name: "Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
		},
	}
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
