package web

import (
	"github.com/bigredeye/catalystx/internal/config"
	"go.uber.org/zap"
)

type webService struct {
	server *server
	config *config.Config
	log    *zap.Logger
}

func newWebService(s *server, name string) webService {
	return webService{s, s.config, s.logger.Named(name)}
}
