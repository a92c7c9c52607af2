// Package bot answers the club's chat commands on discord.
package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"bakpdlbot/internal/components/assert"
	"bakpdlbot/internal/components/telemetry"
	"bakpdlbot/internal/zwiftpower"
	"bakpdlbot/internal/zwiftracing"

	"github.com/bwmarrin/discordgo"
)

const (
	report_bot_command = "bot.command"
	report_bot_send    = "bot.send"
	report_bot_run     = "bot.run"
)

const (
	commandPrefix = "!"
	// MaxMessageLength is the longest message discord accepts.
	MaxMessageLength = 2000
	commandTimeout   = time.Minute * 5
)

type Options struct {
	Scraper *zwiftpower.Scraper
	// TeamID is the zwiftpower team of the club.
	TeamID int
	// Racing is optional, it adds zwiftracing ratings to !team.
	Racing    *zwiftracing.Client
	Telemetry telemetry.API
}

type command struct {
	help string
	run  func(ctx context.Context, args []string) (string, error)
}

// Bot runs one command at a time, every command sees freshly created entity handles.
type Bot struct {
	mutex    sync.Mutex
	scraper  *zwiftpower.Scraper
	teamID   int
	racing   *zwiftracing.Client
	tel      telemetry.API
	commands map[string]command
}

func New(opts Options) *Bot {
	assert.NotNil(opts.Scraper)
	assert.NotNil(opts.Telemetry)

	b := &Bot{
		scraper: opts.Scraper,
		teamID:  opts.TeamID,
		racing:  opts.Racing,
		tel:     telemetry.NewScopedAPI("bot", opts.Telemetry),
	}
	b.commands = map[string]command{
		"zwiftid": {help: "Searches zwiftid of name", run: b.zwiftID},
		"cp":      {help: "Show Critical Power", run: b.criticalPower},
		"team":    {help: "Lists the members of the club's zwiftpower team", run: b.team},
		"signups": {help: "Lists the signups of a zwiftpower race", run: b.signups},
		"sheet":   {help: "Shares the link to the google sheet", run: static(sheetMessage)},
		"events":  {help: "Shares the link to backpedal zwift events", run: static(eventsMessage)},
		"help":    {help: "Shows this message", run: b.help},
	}
	return b
}

// Handle runs the command in content, ok is false if content is not a known command.
func (b *Bot) Handle(ctx context.Context, content string) (reply string, ok bool) {
	if !strings.HasPrefix(content, commandPrefix) {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(content, commandPrefix))
	if len(fields) == 0 {
		return "", false
	}
	name := strings.ToLower(fields[0])
	cmd, ok := b.commands[name]
	if !ok {
		return "", false
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	b.tel.ReportDebug(report_bot_command, name, fields[1:])
	reply, err := cmd.run(ctx, fields[1:])
	if err != nil {
		b.tel.ReportBroken(report_bot_command, err, name, fields[1:])
		return fmt.Sprintf("Sorry, !%s failed: %s", name, err.Error()), true
	}
	return truncate(reply, MaxMessageLength), true
}

func (b *Bot) help(context.Context, []string) (string, error) {
	names := make([]string, 0, len(b.commands))
	for name := range b.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var out strings.Builder
	for _, name := range names {
		fmt.Fprintf(&out, "%s%s: %s\n", commandPrefix, name, b.commands[name].help)
	}
	return strings.TrimSuffix(out.String(), "\n"), nil
}

// truncate cuts a message to max bytes on a rune boundary, an open code block is closed.
func truncate(msg string, max int) string {
	if len(msg) <= max {
		return msg
	}
	const suffix = "\n…\n```"
	cut := max - len(suffix)
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	out := msg[:cut]
	if strings.Count(out, "```")%2 == 1 {
		return out + suffix
	}
	return out + "\n…"
}

func (b *Bot) onMessageCreate(ctx context.Context) func(*discordgo.Session, *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
			return
		}
		reply, ok := b.Handle(ctx, m.Content)
		if !ok {
			return
		}
		if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
			b.tel.ReportBroken(report_bot_send, err, m.ChannelID)
		}
	}
}

// Run connects to the discord gateway and answers commands until ctx is done.
func (b *Bot) Run(ctx context.Context, token string) error {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return err
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	session.AddHandler(b.onMessageCreate(ctx))

	err = session.Open()
	if err != nil {
		b.tel.ReportBroken(report_bot_run, err)
		return err
	}
	defer session.Close()

	b.tel.ReportDebug(report_bot_run, "connected")
	<-ctx.Done()
	return nil
}
