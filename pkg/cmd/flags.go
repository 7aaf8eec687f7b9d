package cmd

import (
	"time"

	"github.com/dukex/flowrun/pkg/integrations/email"
	cli "github.com/urfave/cli/v3"
)

// Config is the shared configuration of every flowrun binary.
type Config struct {
	ServiceName  string
	DatabaseURL  string
	EventBus     string
	KafkaBrokers string
	PluginsPath  string
	Tracing      bool
	HTTPTimeout  time.Duration

	SMTP email.SMTPConfig

	SlackToken       string
	TeamsWebhookURL  string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
}

// CommonFlags are the flags every binary accepts.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence (file://, postgres://, redis://)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "plugins-path",
			Usage:   "Path to the directory containing node plugins",
			Value:   "./plugins",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
		&cli.DurationFlag{
			Name:    "http-timeout",
			Usage:   "Timeout of outbound HTTP calls",
			Value:   30 * time.Second,
			Sources: cli.EnvVars("HTTP_TIMEOUT"),
		},
		&cli.StringFlag{Name: "smtp-host", Usage: "SMTP server host", Sources: cli.EnvVars("SMTP_HOST")},
		&cli.IntFlag{Name: "smtp-port", Usage: "SMTP server port", Value: 587, Sources: cli.EnvVars("SMTP_PORT")},
		&cli.StringFlag{Name: "smtp-username", Usage: "SMTP username", Sources: cli.EnvVars("SMTP_USERNAME")},
		&cli.StringFlag{Name: "smtp-password", Usage: "SMTP password", Sources: cli.EnvVars("SMTP_PASSWORD")},
		&cli.StringFlag{Name: "smtp-from", Usage: "Sender address of outbound email", Sources: cli.EnvVars("SMTP_FROM")},
		&cli.BoolFlag{Name: "smtp-implicit-tls", Usage: "Connect with TLS instead of STARTTLS", Sources: cli.EnvVars("SMTP_IMPLICIT_TLS")},
		&cli.StringFlag{Name: "slack-token", Usage: "Slack bot token", Sources: cli.EnvVars("SLACK_BOT_TOKEN")},
		&cli.StringFlag{Name: "teams-webhook-url", Usage: "Microsoft Teams incoming webhook", Sources: cli.EnvVars("TEAMS_WEBHOOK_URL")},
		&cli.StringFlag{Name: "twilio-account-sid", Usage: "Twilio account SID", Sources: cli.EnvVars("TWILIO_ACCOUNT_SID")},
		&cli.StringFlag{Name: "twilio-auth-token", Usage: "Twilio auth token", Sources: cli.EnvVars("TWILIO_AUTH_TOKEN")},
		&cli.StringFlag{Name: "twilio-from", Usage: "Twilio sender number", Sources: cli.EnvVars("TWILIO_FROM_NUMBER")},
	}
}

// ConfigFromCommand reads the common flags.
func ConfigFromCommand(serviceName string, command *cli.Command) Config {
	return Config{
		ServiceName:  serviceName,
		DatabaseURL:  command.String("database-url"),
		EventBus:     command.String("event-bus"),
		KafkaBrokers: command.String("kafka-brokers"),
		PluginsPath:  command.String("plugins-path"),
		Tracing:      command.Bool("tracing"),
		HTTPTimeout:  command.Duration("http-timeout"),
		SMTP: email.SMTPConfig{
			Host:        command.String("smtp-host"),
			Port:        command.Int("smtp-port"),
			Username:    command.String("smtp-username"),
			Password:    command.String("smtp-password"),
			From:        command.String("smtp-from"),
			ImplicitTLS: command.Bool("smtp-implicit-tls"),
		},
		SlackToken:       command.String("slack-token"),
		TeamsWebhookURL:  command.String("teams-webhook-url"),
		TwilioAccountSID: command.String("twilio-account-sid"),
		TwilioAuthToken:  command.String("twilio-auth-token"),
		TwilioFrom:       command.String("twilio-from"),
	}
}
