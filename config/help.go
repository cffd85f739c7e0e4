package config

import (
	"encoding/json"
	"flag"
	"fmt"
)

const HelpMessage = `
Ride dispatch service

Usage:
  dispatch -mode <mode> [-config-path config.yaml]

Modes:
  dispatch-service   HTTP API, websocket gateway, notification relay and pending-ride sweeper
  migrate            apply the database schema and exit

Flags:
  -mode          application mode
  -config-path   path to the YAML config file (default config.yaml)
  -help          show this message

Every YAML key maps to an environment variable: dispatch.claim_timeout -> DISPATCH_CLAIM_TIMEOUT.
Environment variables take precedence over the file.
`

func PrintHelp() {
	if HelpMessage != "" {
		fmt.Printf("%s", HelpMessage)
	} else {
		flag.Usage()
	}
}

// PrintConfig prints cfg with secrets masked.
func PrintConfig(cfg *Config) {
	c := *cfg
	c.Database.Password = mask(c.Database.Password)
	c.RabbitMQ.Password = mask(c.RabbitMQ.Password)
	c.Redis.Password = mask(c.Redis.Password)
	c.Auth.JWTSecret = mask(c.Auth.JWTSecret)
	c.Geocoder.APIKey = mask(c.Geocoder.APIKey)

	out, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "******"
}
