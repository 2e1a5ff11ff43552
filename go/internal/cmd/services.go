package main

import (
	"github.com/jonboulle/clockwork"

	"github.com/Du7chy/Seedlings/go/clients/farm_api_client"
	"github.com/Du7chy/Seedlings/go/internal/actions"
	"github.com/Du7chy/Seedlings/go/internal/notice"
	"github.com/Du7chy/Seedlings/go/internal/realtime"
)

type Services struct {
	Clock    clockwork.Clock
	API      *farm_api_client.FarmApiClient
	Conn     *realtime.ConnectionManager
	Lobby    *actions.Dispatcher
	Notices  *notice.Center
	Renderer *textRenderer
}

func setupServices(config Config) (*Services, error) {
	// API client → duplex connection sharing its identity → lobby dispatcher

	clock := clockwork.NewRealClock()

	api := farm_api_client.NewFarmApiClient(config.BaseURL, config.User)

	wsURL, err := config.wsURL()
	if err != nil {
		return nil, err
	}
	connConfig := realtime.DefaultConfig(wsURL)
	connConfig.Header = api.Headers()
	connConfig.Jar = api.Jar()
	connConfig.ReconnectWait = config.ReconnectWait
	connConfig.MaxReconnectWait = config.MaxReconnectWait
	connConfig.MaxReconnects = config.MaxReconnects
	conn := realtime.NewConnectionManager(connConfig, realtime.WithClock(clock))

	renderer := newTextRenderer()
	notices := notice.NewCenter(clock, config.NoticeTTL, renderer.printNotices)
	renderer.lobbyNotices = notices

	return &Services{
		Clock:    clock,
		API:      api,
		Conn:     conn,
		Lobby:    actions.NewDispatcher(api, notices),
		Notices:  notices,
		Renderer: renderer,
	}, nil
}
