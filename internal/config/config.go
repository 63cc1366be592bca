package config

import (
	"github.com/kelseyhightower/envconfig"
)

// App holds server configuration. MySQL, Redis and AMQP sinks are optional;
// an empty address disables the sink.
type App struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	MySQLDSN     string `envconfig:"MYSQL_DSN" default:""`
	RedisAddr    string `envconfig:"REDIS_ADDR" default:""`
	AMQPURL      string `envconfig:"AMQP_URL" default:""`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"escrow.events"`

	EventBuffer int `envconfig:"EVENT_BUFFER" default:"10000"`
	// more than one worker can reorder events across sinks; keep at 1
	// unless every sink tolerates it
	SinkWorkers int `envconfig:"SINK_WORKERS" default:"1"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
