package main

import "time"

type Config struct {
	Host             string        `env:"HOST,default=localhost"`
	Port             int           `env:"PORT,default=7465"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT,default=5s"`
	MaxFrameSize     int           `env:"MAX_FRAME_SIZE,default=1048576"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	BadgerFilepath   string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel         string        `env:"LOG_LEVEL,default=info"`
}
