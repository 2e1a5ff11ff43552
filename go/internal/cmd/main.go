package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Du7chy/Seedlings/go/internal/page"
	"github.com/Du7chy/Seedlings/go/internal/realtime"
	"github.com/Du7chy/Seedlings/go/internal/roomlist"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Logs go to stderr so they don't tear up the screen
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config, err := loadConfig(getEnv("SEEDLINGS_CONFIG", defaultConfigPath))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	config = applyEnv(config)

	level, err := zerolog.ParseLevel(config.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	services, err := setupServices(config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up client")
	}

	log.Info().
		Str("base_url", config.BaseURL).
		Str("user", config.User).
		Str("room_id", config.RoomID).
		Msg("starting seedlings")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	lines := readLines()

	rawRoomID := config.RoomID
	if rawRoomID == "" {
		roomID, ok := runLobby(ctx, services, lines)
		if !ok {
			return
		}
		rawRoomID = strconv.Itoa(roomID)
	}

	if err := runRoom(ctx, services, config, rawRoomID, lines); err != nil {
		log.Error().Err(err).Msg("room page failed")
	}
	log.Info().Msg("seedlings stopped")
}

// readLines feeds stdin to a channel that closes on EOF
func readLines() <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// runLobby lets the user find, join or create a room. It returns the room to enter.
func runLobby(ctx context.Context, s *Services, lines <-chan string) (int, bool) {
	search := roomlist.NewSearcher(s.Clock, roomlist.SearchDelay, func(query string) {
		rooms, err := s.API.ListRooms(ctx, query)
		if err != nil {
			log.Error().Err(err).Str("query", query).Msg("failed to search rooms")
			s.Notices.Error("Search failed!")
			return
		}
		s.Renderer.printRooms(query, rooms)
	})
	defer search.Stop()
	defer s.Notices.Close()

	fmt.Println(lobbyHelp)
	search.Now("")

	for {
		select {
		case <-ctx.Done():
			return 0, false
		case line, ok := <-lines:
			if !ok {
				return 0, false
			}
			cmd, err := parseLobbyCommand(line)
			if errors.Is(err, errQuit) {
				return 0, false
			}
			if err != nil {
				fmt.Println(err)
				fmt.Println(lobbyHelp)
				continue
			}

			switch cmd.kind {
			case "search":
				search.Input(cmd.query)
			case "list":
				search.Now(cmd.query)
			case "join":
				res := s.Lobby.JoinRoom(ctx, cmd.roomID, cmd.code)
				if id, ok := enteredRoom(res.OK, res.RoomID, res.Redirect); ok {
					return id, true
				}
			case "create":
				res := s.Lobby.CreateRoom(ctx, cmd.create)
				if res.OK && res.JoinCode != "" {
					fmt.Printf("Room code: %s\n", res.JoinCode)
				}
				if id, ok := enteredRoom(res.OK, res.RoomID, res.Redirect); ok {
					return id, true
				}
			}
		}
	}
}

// enteredRoom picks the room a join or create lands in. A rejected join that
// carries a redirect (already a member elsewhere) lands there too.
func enteredRoom(ok bool, roomID int, redirect string) (int, bool) {
	if ok && roomID > 0 {
		return roomID, true
	}
	if redirect == "" {
		return 0, false
	}
	id, err := roomlist.RoomIDFromRedirect(redirect)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring redirect")
		return 0, false
	}
	return id, true
}

// runRoom connects the duplex channel and drives the room page until the user
// quits, leaves or ctx ends
func runRoom(ctx context.Context, s *Services, config Config, rawRoomID string, lines <-chan string) error {
	connErr := make(chan error, 1)
	go func() { connErr <- s.Conn.Start(ctx) }()
	defer s.Conn.Close()

	ctrl := page.New(page.Config{
		RawRoomID:    rawRoomID,
		PollInterval: config.PollInterval,
		NoticeTTL:    config.NoticeTTL,
	}, s.Clock, s.API, s.Conn, s.Renderer)

	runErr := make(chan error, 1)
	go func() { runErr <- ctrl.Run(ctx) }()

	for {
		select {
		case err := <-runErr:
			return err

		case err := <-connErr:
			if errors.Is(err, realtime.ErrReconnectsExhausted) {
				log.Error().Err(err).Msg("connection gave up")
			}
			connErr = nil

		case line, ok := <-lines:
			if !ok {
				ctrl.Stop()
				lines = nil
				continue
			}
			msg, err := parseRoomCommand(line)
			if errors.Is(err, errQuit) {
				ctrl.Stop()
				continue
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				fmt.Fprintln(os.Stderr, roomHelp)
				continue
			}
			if d, ok := msg.(page.DismissNotice); ok {
				id, found := s.Renderer.resolveNotice(d.ID)
				if !found {
					continue
				}
				msg = page.DismissNotice{ID: id}
			}
			ctrl.Post(msg)
		}
	}
}
