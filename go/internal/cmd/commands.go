package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Du7chy/Seedlings/go/clients/farm_api_client"
	"github.com/Du7chy/Seedlings/go/internal/page"
	"github.com/Du7chy/Seedlings/go/internal/roomlist"
)

var (
	errQuit           = errors.New("quit")
	errUnknownCommand = errors.New("unknown command")
)

const roomHelp = `commands:
  <text>            send a chat message
  /seed <id>        select or deselect a seed
  /plant            plant the selected seed
  /harvest <id>     harvest a ready plant
  /hide <id>        hide a plant row until the next refresh
  /shop, /close     open or close the shop
  /item <id>        select a shop item
  /qty <n>          set the purchase quantity
  /buy              buy the selected item
  /sell <id>        sell a harvested plant
  /dismiss <id>     dismiss a notice
  /refresh          refetch plants and inventory
  /leave            leave the room
  /quit             exit`

const lobbyHelp = `commands:
  <text>                      search rooms
  /rooms [query]              list rooms now
  /join <id>                  join a public room
  /code <code>                join by room code
  /create <name> [private] [max]
  /quit                       exit`

// parseRoomCommand turns one input line into a page message
func parseRoomCommand(line string) (page.Msg, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return page.SendChat{Text: line}, nil
	}

	name, arg := splitCommand(line)
	switch name {
	case "seed":
		id, err := intArg(name, arg)
		return page.SelectSeed{SeedID: id}, err
	case "plant":
		return page.PlantSelected{}, nil
	case "harvest":
		id, err := intArg(name, arg)
		return page.Harvest{PlantID: id}, err
	case "hide":
		id, err := intArg(name, arg)
		return page.CloseView{PlantID: id}, err
	case "shop":
		return page.OpenShop{}, nil
	case "close":
		return page.CloseShop{}, nil
	case "item":
		id, err := intArg(name, arg)
		return page.SelectItem{ItemID: id}, err
	case "qty":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("qty: %q is not a number", arg)
		}
		return page.SetQuantity{Quantity: n}, nil
	case "buy":
		return page.BuySelected{}, nil
	case "sell":
		id, err := intArg(name, arg)
		return page.Sell{EntryID: id}, err
	case "dismiss":
		if arg == "" {
			return nil, errors.New("dismiss: missing notice id")
		}
		return page.DismissNotice{ID: arg}, nil
	case "refresh":
		return page.Refresh{Reason: "user"}, nil
	case "leave":
		return page.Leave{}, nil
	case "quit", "exit":
		return nil, errQuit
	default:
		return nil, fmt.Errorf("%w: /%s", errUnknownCommand, name)
	}
}

// lobbyCommand is one parsed lobby line
type lobbyCommand struct {
	kind   string
	query  string
	roomID int
	code   string
	create farm_api_client.CreateRoomRequest
}

func parseLobbyCommand(line string) (lobbyCommand, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return lobbyCommand{kind: "search", query: line}, nil
	}

	name, arg := splitCommand(line)
	switch name {
	case "rooms":
		return lobbyCommand{kind: "list", query: arg}, nil
	case "join":
		id, err := intArg(name, arg)
		return lobbyCommand{kind: "join", roomID: id}, err
	case "code":
		code, err := roomlist.NormalizeJoinCode(arg)
		return lobbyCommand{kind: "join", code: code}, err
	case "create":
		req, err := parseCreate(arg)
		return lobbyCommand{kind: "create", create: req}, err
	case "quit", "exit":
		return lobbyCommand{}, errQuit
	default:
		return lobbyCommand{}, fmt.Errorf("%w: /%s", errUnknownCommand, name)
	}
}

// parseCreate reads "<name> [private] [max]". The name may contain spaces.
func parseCreate(arg string) (farm_api_client.CreateRoomRequest, error) {
	fields := strings.Fields(arg)
	req := farm_api_client.CreateRoomRequest{MaxMembers: 4}

	for len(fields) > 1 {
		last := fields[len(fields)-1]
		if n, err := strconv.Atoi(last); err == nil {
			req.MaxMembers = n
		} else if strings.EqualFold(last, "private") {
			req.IsPrivate = true
		} else {
			break
		}
		fields = fields[:len(fields)-1]
	}

	req.Name = strings.Join(fields, " ")
	if req.Name == "" {
		return req, errors.New("create: missing room name")
	}
	return req, nil
}

func splitCommand(line string) (string, string) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

func intArg(name, arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: %q is not a valid id", name, arg)
	}
	return n, nil
}
