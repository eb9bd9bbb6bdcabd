package main

import (
	"github.com/maxogod/session-relay/src/common/logger"
	"github.com/maxogod/session-relay/src/relay/config"
	"github.com/maxogod/session-relay/src/relay/internal/server"
)

func main() {
	conf, err := config.InitConfig()
	if err != nil {
		logger.InitLogger(logger.LoggerEnvDevelopment)
		logger.Logger.Fatalln("[Session Relay] failed to initialize config:", err)
	}

	logger.InitLogger(logger.LoggerEnv(conf.LogEnv))
	logger.SetLevel(conf.LogLevel)
	defer logger.Sync()

	logger.Logger.Infof("[Session Relay] initializing %s", conf)

	s, err := server.NewServer(conf)
	if err != nil {
		logger.Logger.Fatalln("[Session Relay] failed to create server:", err)
	}

	if err = s.Run(); err != nil {
		logger.Logger.Fatalln("[Session Relay] server stopped with error:", err)
	}
}
