package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Du7chy/Seedlings/go/internal/models"
	"github.com/Du7chy/Seedlings/go/internal/notice"
	"github.com/Du7chy/Seedlings/go/internal/page"
	"github.com/Du7chy/Seedlings/go/internal/roomlist"
)

const clearScreen = "\033[H\033[2J"

// chatLines is how much of the chat log fits on screen
const chatLines = 12

// textRenderer draws the page as a full-screen text dashboard
type textRenderer struct {
	mu   sync.Mutex
	out  io.Writer
	loc  *time.Location
	last string

	// notices on screen, for resolving typed IDs
	notices []notice.Notice

	lobbyNotices *notice.Center
}

func newTextRenderer() *textRenderer {
	return &textRenderer{out: os.Stdout, loc: time.Local}
}

func (r *textRenderer) Render(s page.Snapshot) {
	screen := r.format(s)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = s.Notices
	if screen == r.last {
		return
	}
	r.last = screen
	fmt.Fprint(r.out, clearScreen, screen)
}

func (r *textRenderer) format(s page.Snapshot) string {
	var b strings.Builder

	status := "offline"
	if s.Connected {
		status = "online"
	}
	if s.RoomBound {
		fmt.Fprintf(&b, "Room %d  [%s]  %d member(s)\n", s.RoomID, status, s.MemberCount)
		names := make([]string, 0, len(s.Members))
		for _, m := range s.Members {
			name := m.Username
			if m.IsOwner {
				name += " (owner)"
			}
			names = append(names, name)
		}
		if len(names) > 0 {
			fmt.Fprintf(&b, "Members: %s\n", strings.Join(names, ", "))
		}
	} else {
		fmt.Fprintf(&b, "No room  [%s]\n", status)
	}
	writeNotices(&b, s.Notices)

	b.WriteString("\n-- Growing --\n")
	if len(s.Growing) == 0 {
		b.WriteString("Nothing growing.\n")
	}
	for _, p := range s.Growing {
		action := ""
		if p.CanHarvest() {
			action = fmt.Sprintf("  > harvest %d", p.ID)
		}
		fmt.Fprintf(&b, "#%-4d %-12s %s %6s%s\n", p.ID, p.Name, progressBar(p.Progress), p.Label(), action)
	}

	b.WriteString("\n-- Inventory --\n")
	writeInventory(&b, s)

	if s.Shop.Open {
		b.WriteString("\n-- Shop --\n")
		writeShop(&b, s.Shop)
	}

	if s.RoomBound {
		b.WriteString("\n-- Chat --\n")
		entries := s.Chat
		if len(entries) > chatLines {
			entries = entries[len(entries)-chatLines:]
		}
		for _, e := range entries {
			b.WriteString(e.Format(r.loc))
			b.WriteByte('\n')
		}
	}

	b.WriteString("\n> ")
	return b.String()
}

func writeNotices(b *strings.Builder, notices []notice.Notice) {
	for _, n := range notices {
		fmt.Fprintf(b, "[%s] %s  (dismiss %s)\n", strings.ToUpper(string(n.Kind)), n.Text, shortID(n.ID))
	}
}

func writeInventory(b *strings.Builder, s page.Snapshot) {
	if len(s.Seeds) == 0 && len(s.Plants) == 0 {
		b.WriteString("Empty.\n")
		return
	}
	for _, seed := range s.Seeds {
		marker := " "
		if s.SeedSelected && s.SelectedSeed == seed.ID {
			marker = "*"
		}
		fmt.Fprintf(b, "%s seed #%-4d %-12s x%d\n", marker, seed.ID, seed.Name, seed.Quantity)
	}
	for _, p := range s.Plants {
		fmt.Fprintf(b, "  plant #%-3d %-12s worth %d\n", p.ID, p.Name, p.Value)
	}
}

func writeShop(b *strings.Builder, shop page.ShopSnapshot) {
	fmt.Fprintf(b, "Balance: %d\n", shop.Balance)
	for _, item := range shop.Items {
		marker := " "
		if shop.Selected && shop.SelectedItem == item.ID {
			marker = "*"
		}
		fmt.Fprintf(b, "%s #%-4d %-12s %d\n", marker, item.ID, item.Name, item.Price)
	}
	if !shop.Selected {
		return
	}
	total := "?"
	if shop.TotalKnown {
		total = fmt.Sprint(shop.Total)
	}
	buy := "buy disabled"
	if shop.CanBuy {
		buy = "> buy"
	}
	fmt.Fprintf(b, "Quantity %d  Total %s  %s\n", shop.Quantity, total, buy)
}

func progressBar(percent float64) string {
	const width = 10
	filled := int(percent * width / 100)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// resolveNotice expands a typed ID prefix to the full ID of a notice on screen
func (r *textRenderer) resolveNotice(prefix string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notices {
		if prefix != "" && strings.HasPrefix(n.ID, prefix) {
			return n.ID, true
		}
	}
	return "", false
}

// shortID is enough of a notice ID to type back
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// printRooms lists the lobby search results
func (r *textRenderer) printRooms(query string, rooms []models.RoomSummary) {
	var b strings.Builder
	if len(rooms) == 0 {
		b.WriteString(roomlist.EmptyText(query))
		b.WriteByte('\n')
	}
	for _, room := range rooms {
		b.WriteString(roomlist.Describe(room))
		if roomlist.Joinable(room) {
			fmt.Fprintf(&b, "  > join %d", room.ID)
		}
		b.WriteByte('\n')
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, b.String())
}

// printNotices is the lobby notice callback
func (r *textRenderer) printNotices() {
	if r.lobbyNotices == nil {
		return
	}
	var b strings.Builder
	writeNotices(&b, r.lobbyNotices.Active())

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprint(r.out, b.String())
}
