package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"autobot-go/internal/autobot"
)

// RouteLogs sends discordgo's internal log lines to logger.
func RouteLogs(session *discordgo.Session, logger autobot.Logger, debug bool) {
	session.LogLevel = discordgo.LogWarning
	if debug {
		session.LogLevel = discordgo.LogDebug
	}
	discordgo.Logger = func(level, _ int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch level {
		case discordgo.LogError:
			logger.Error(msg, "source", "discordgo")
		case discordgo.LogWarning:
			logger.Warn(msg, "source", "discordgo")
		case discordgo.LogInformational:
			logger.Info(msg, "source", "discordgo")
		default:
			logger.Debug(msg, "source", "discordgo")
		}
	}
}
